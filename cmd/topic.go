package cmd

import (
	"context"
	"flag"

	"github.com/etnz/journal/docs"
	"github.com/google/subcommands"
)

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the user manual" }
func (*topicCmd) Usage() string {
	return `tj topic [<topic> ...]

  Displays the given topics of the user manual, or the list of topics.
  The topic '*' displays every topic.
`
}

func (*topicCmd) SetFlags(f *flag.FlagSet) {}

func (*topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		printMarkdown(docs.Index())
		return subcommands.ExitSuccess
	}
	content, err := docs.Topics(f.Args()...)
	if err != nil {
		return failf(subcommands.ExitUsageError, "Error: %v", err)
	}
	printMarkdown(content)
	return subcommands.ExitSuccess
}
