// Package oboe is the typed API access layer for the oboe-vintage backend:
//
//   - Client: fixed base URL, 10s timeout, JSON content type by default
//   - Ordered request, response and error interceptors
//   - Envelope decoding ({data, message, status}) with generic helpers
//   - Query: cached, deduplicated, revalidating reads keyed by QueryKey
//   - Mutation: fire-once writes with lifecycle callbacks
//   - Prometheus metrics, OpenTelemetry spans and slog-compatible debug logging
//
// Every failure reaches the caller as an *APIError carrying the wire shape
// {message, status, code}. The transport makes exactly one attempt per call;
// retries exist only on queries and only when configured.
//
// Typical usage:
//
//	client := oboe.New(
//	    oboe.WithBaseURL("https://api.example.com"),
//	    oboe.WithUnauthorizedHandler(onSessionExpired),
//	)
//	qc := oboe.NewQueryClient(client)
//
//	users := oboe.NewQuery[[]User](qc, oboe.QueryKey{"users"}, "/users",
//	    oboe.WithStaleTime(time.Minute))
//	list, err := users.Fetch(ctx)
//
//	create := oboe.NewMutation(func(ctx context.Context, in NewUser) (*oboe.Envelope[User], error) {
//	    return oboe.PostEnvelope[User](ctx, client, "/users", in)
//	}, oboe.OnSuccess(func(ctx context.Context, _ *oboe.Envelope[User], _ NewUser) {
//	    qc.InvalidateQueries(oboe.QueryKey{"users"})
//	}))
//	env, err := create.Mutate(ctx, NewUser{Name: "kim"})
package oboe
