package query

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/nspcc-dev/oracle-bridge/cli/cmdargs"
	"github.com/nspcc-dev/oracle-bridge/cli/options"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/urfave/cli"
)

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	signedFlags := append(append([]cli.Flag{}, options.RPC...), options.Wallet...)
	registerFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "operation, o",
			Usage: "operation name (like getAlerts) or code",
		},
		cli.StringSliceFlag{
			Name:  "path",
			Usage: "path parameter, can be repeated",
		},
		cli.StringSliceFlag{
			Name:  "param",
			Usage: "query parameter as key=value, can be repeated",
		},
		cli.StringFlag{
			Name:  "options",
			Usage: "additional provider options",
		},
	}, signedFlags...)
	fulfillFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "operation, o",
			Usage: "operation name (like getAlerts) or code",
		},
		cli.UintFlag{
			Name:  "status",
			Value: 200,
			Usage: "response status code",
		},
		cli.StringFlag{
			Name:  "response",
			Usage: "response body",
		},
	}, signedFlags...)
	eventsFlags := append([]cli.Flag{
		cli.Uint64Flag{
			Name:  "start",
			Usage: "index of the first event",
		},
		cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of events (server default if not set)",
		},
	}, options.RPC...)
	return []cli.Command{{
		Name:  "query",
		Usage: "Query and drive a bridge node via RPC",
		Subcommands: []cli.Command{
			{
				Name:   "version",
				Usage:  "Show node version and network",
				Action: queryVersion,
				Flags:  options.RPC,
			},
			{
				Name:      "pending",
				Usage:     "Show pending queries",
				UsageText: "pending -r endpoint [id]",
				Action:    queryPending,
				Flags:     options.RPC,
			},
			{
				Name:      "result",
				Usage:     "Show the response delivered to the mailbox",
				UsageText: "result -r endpoint <id>",
				Action:    queryResult,
				Flags:     options.RPC,
			},
			{
				Name:   "events",
				Usage:  "Show bridge events",
				Action: queryEvents,
				Flags:  eventsFlags,
			},
			{
				Name:        "register",
				Usage:       "Register a new query signed by the wallet account",
				UsageText:   "register -r endpoint -w wallet [-a address] -o operation [--path p]... [--param key=value]... [--options opts]",
				Description: cmdargs.ParamsParsingDoc,
				Action:      register,
				Flags:       registerFlags,
			},
			{
				Name:      "fulfill",
				Usage:     "Deliver a response signed by the oracle account",
				UsageText: "fulfill -r endpoint -w wallet [-a address] -o operation [--status code] [--response body] <id>",
				Action:    fulfill,
				Flags:     fulfillFlags,
			},
		},
	}}
}

func queryVersion(ctx *cli.Context) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	v, err := c.GetVersion()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("UserAgent:\t" + v.UserAgent + "\n"))
	_, _ = tw.Write([]byte("Network:\t" + v.Protocol.Network.String() + "\n"))
	_, _ = tw.Write([]byte("Oracle:\t" + v.Protocol.Oracle + "\n"))
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func queryPending(ctx *cli.Context) error {
	var id string
	switch ctx.NArg() {
	case 0:
	case 1:
		id = ctx.Args().First()
	default:
		return cli.NewExitError("at most one query ID is expected", 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	var pqs []*state.PendingQuery
	if id != "" {
		h, err := options.ParseID(id)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid query ID: %w", err), 1)
		}
		pq, err := c.GetPendingQuery(h)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		pqs = append(pqs, pq)
	} else {
		all, err := c.GetPendingQueries()
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		pqs = all
	}

	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	for _, pq := range pqs {
		_, _ = tw.Write([]byte(pq.ID.StringLE() + "\t" + pq.Operation.String() + "\t" + address.Uint160ToString(pq.Requester) + "\n"))
	}
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func queryResult(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("query ID is missing", 1)
	}
	id, err := options.ParseID(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid query ID: %w", err), 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	res, err := c.GetQueryResult(id)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("ID:\t" + res.ID.StringLE() + "\n"))
	_, _ = tw.Write([]byte("Operation:\t" + res.Operation.String() + "\n"))
	_, _ = tw.Write([]byte("Status:\t" + strconv.FormatUint(uint64(res.StatusCode), 10) + "\n"))
	_, _ = tw.Write([]byte("Response:\t" + string(res.Response) + "\n"))
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func queryEvents(ctx *cli.Context) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	evs, err := c.GetNotifications(ctx.Uint64("start"), ctx.Int("limit"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	for _, ev := range evs {
		line := strconv.FormatUint(ev.Index, 10) + "\t" + ev.Name + "\t" + ev.ID().StringLE()
		switch {
		case ev.Log != nil:
			line += "\t" + ev.Log.Operation.String() + "\t" + address.Uint160ToString(ev.Log.Requester)
		case ev.Result != nil:
			line += "\t" + ev.Result.Operation.String() + "\t" + strconv.FormatUint(uint64(ev.Result.StatusCode), 10)
		}
		_, _ = tw.Write([]byte(line + "\n"))
	}
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

func register(ctx *cli.Context) error {
	op, err := operation.FromString(ctx.String("operation"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	path, err := cmdargs.ParsePathParams(ctx.StringSlice("path"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	query, err := cmdargs.ParseQueryParams(ctx.StringSlice("param"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	signer, err := options.GetSigner(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	id, err := c.RegisterQuery(signer, op, path, query, ctx.String("options"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, id.StringLE())
	return nil
}

func fulfill(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("query ID is missing", 1)
	}
	id, err := options.ParseID(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid query ID: %w", err), 1)
	}
	op, err := operation.FromString(ctx.String("operation"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	signer, err := options.GetSigner(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	err = c.Fulfill(signer, id, op, uint32(ctx.Uint("status")), []byte(ctx.String("response")))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "OK")
	return nil
}
