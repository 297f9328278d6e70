// Package resolver is a stub DNS resolver client: it builds queries,
// sends them to a small configured set of recursive name servers,
// validates and parses responses, and hands back structured results.
//
// A Handle owns its own sockets and per-server transaction state. It is
// not safe for concurrent use by multiple goroutines; callers needing
// concurrent queries should open multiple handles.
//
//	h, err := resolver.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	if err := h.Query(context.Background(), "example.com", resolver.RecordTypeA); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := h.Result(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rr := range res.Answers {
//	    if addr, ok := rr.AsA(); ok {
//	        fmt.Println(addr)
//	    }
//	}
package resolver
