package cmd

import (
	"flag"

	"github.com/etnz/journal/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors complete the values of flags that have a known set of values.
var flagPredictors = map[string]complete.Predictor{
	"db":   predict.Files("*.db"),
	"mode": predict.Set{"FULL", "APPEND"},
	"p":    predict.Set{"day", "week", "month", "quarter", "year", "inception"},
}

// Completion returns the shell completion of the tj command line, derived from
// the flags of every subcommand.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagsOf(flag.CommandLine),
	}
	for _, list := range Commands {
		for _, c := range list {
			f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(f)
			sub := &complete.Command{Flags: flagsOf(f)}
			switch c.Name() {
			case "import":
				sub.Args = predict.Files("*.jsonl")
			case "topic":
				topics, _ := docs.AllTopics()
				sub.Args = predict.Set(topics)
			}
			root.Sub[c.Name()] = sub
		}
	}
	for _, name := range []string{"help", "flags", "commands"} {
		root.Sub[name] = &complete.Command{}
	}
	return root
}

func flagsOf(f *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	f.VisitAll(func(fl *flag.Flag) {
		if p, ok := flagPredictors[fl.Name]; ok {
			flags[fl.Name] = p
			return
		}
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[fl.Name] = predict.Nothing
			return
		}
		flags[fl.Name] = predict.Something
	})
	return flags
}
