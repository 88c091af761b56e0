package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/checklinks/cmd/checklinks/commands"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

// run parses args, executes the selected command and returns the process
// exit code.
func run(ctx context.Context, args []string) int {
	cli := &commands.CLI{}
	global := &commands.Global{}

	parser, err := kong.New(cli,
		kong.Name("checklinks"),
		kong.Description("Find dead links in documentation."),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		ferrors.NewCLIErrorAdapter(true, nil).Report(err)
		return ferrors.ExitInternal
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return ferrors.ExitSetup
	}

	err = kctx.Run()
	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose > 0, global.Logger)
	if err != nil {
		adapter.Report(err)
	}
	return adapter.ExitCodeFor(err)
}
