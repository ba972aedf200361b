// Package standup generates a daily standup summary from a developer's work
// trail: tracker tickets, commits, hosting activity, time entries and notes.
//
// Quick start:
//
//	s, err := standup.New(standup.WithConfigFile("standup.yaml"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sum, err := s.Generate(ctx, time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sum.Text)
//
// Connectors that are not configured are skipped, and connectors that fail
// during a run are reported in Summary.Warnings rather than failing it.
// A Standup is safe for concurrent use.
package standup
