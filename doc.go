/*
Package firestream is a reactive driver for an auth + realtime tree database backend.

It turns the imperative, callback based backend API into channels: a [Driver]
consumes a channel of declarative actions and returns a [Sources] bundle of
live backend state and per-action results.

# Concept

Every action pushed into the driver is executed right away, whether or not
anybody ever asks for its result. Results are retrieved by correlation key
with [Sources.Responses]: tag an action with a key using domain.Action.As and
read the outcome back under the same key. Several actions sharing a key yield
their results one after the other, in the order the actions were pushed.

State sources (auth state, ID token, database references) are lazy: the
backend subscription behind a source is opened by its first subscriber,
shared by all of them, and closed when the last one leaves. Late subscribers
immediately receive the latest value.

# Usage

	app, err := firestream.New(domain.Config{DatabaseURL: "https://demo.example.com"}, "demo")
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	actions := make(chan domain.Action)
	sources := app.Driver()(ctx, actions)

	// Subscribe before pushing: responses are not replayed.
	results := sources.Responses(ctx, "op1")
	go func() { actions <- domain.Ref("/greeting").Set("hello").As("op1") }()

	for n := range results {
		if n.Err != nil {
			log.Fatal(n.Err)
		}
		log.Println("ack:", n.Value)
		break
	}

	for n := range sources.Database.Ref("/greeting").Value().Subscribe(ctx) {
		log.Println("greeting:", n.Value)
	}
*/
package firestream
