// Package propmatch provides a Go client for the PropMatch property
// search API.
//
// # Searching
//
//	client, _ := propmatch.New("https://api.propmatch.example",
//	    propmatch.WithAPIKey(os.Getenv("PROPMATCH_API_KEY")),
//	)
//	page, _ := client.Search(ctx, propmatch.SearchRequest{
//	    Query:   "3 bedroom house with garden in Claremont",
//	    Explain: true,
//	})
//	for _, r := range page.Results {
//	    fmt.Println(r.Listing.Title, r.Score)
//	}
//
// # Streaming explanations
//
//	err := client.StreamExplanation(ctx, listingID, query,
//	    func(ev propmatch.StreamEvent) error {
//	        if ev.Type == propmatch.StreamEventChunk {
//	            fmt.Print(ev.Text)
//	        }
//	        return nil
//	    })
//
// Errors from non-2xx responses are *APIError values; use the Is*
// helpers or errors.As to inspect them.
package propmatch
