// Package factgpt embeds the factgpt knowledge pipeline in a Go program.
//
// The client loads a pipeline artifact once and answers the same queries as
// the HTTP API without a server in between:
//
//	client, _ := factgpt.New(ctx,
//	    factgpt.WithArtifact("database/pipeline.json"),
//	    factgpt.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", ""),
//	)
//	defer client.Close()
//
//	docs, _ := client.Search(ctx, "golang", factgpt.SearchOptions{Tags: true, SortByDate: true})
//	g, _ := client.Plot(ctx, "golang", 3)
//	answer, _ := client.Recommend(ctx, "golang", func(text string) error {
//	    fmt.Print("\r", text)
//	    return nil
//	})
//
// A Valkey or Redis cache for search and plot results is enabled with WithCache.
package factgpt
