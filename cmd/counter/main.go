package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/counter/counter"
	"github.com/cenkalti/counter/internal/jsonutil"
	"github.com/cenkalti/counter/internal/logger"
	"github.com/cenkalti/counter/rpcclient"
	"github.com/cenkalti/log"
	"github.com/urfave/cli"
)

var app = cli.NewApp()

func main() {
	app.Version = counter.Version
	app.Usage = "Counter service and its client"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "enable debug log",
		},
		cli.StringFlag{
			Name:  "server,s",
			Usage: "location of the server",
			Value: "http://127.0.0.1:7246/",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Usage: "request timeout",
			Value: 10 * time.Second,
		},
	}
	app.Before = handleBeforeCommand
	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "run counter server",
			Action: handleServer,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config,c",
					Usage: "read config from `FILE`",
					Value: "~/.counter.yaml",
				},
			},
		},
		{
			Name:   "status",
			Usage:  "show status of the replica",
			Action: handleStatus,
		},
		{
			Name:   "get",
			Usage:  "get counter value",
			Action: handleGet,
		},
		{
			Name:      "incr",
			Usage:     "increment counter",
			ArgsUsage: "STEP",
			Action:    handleIncr,
		},
		{
			Name:      "decr",
			Usage:     "decrement counter",
			ArgsUsage: "STEP",
			Action:    handleDecr,
		},
		{
			Name:      "atomic-incr",
			Usage:     "increment counter if its value equals BEFORE",
			ArgsUsage: "BEFORE STEP",
			Action:    handleAtomicIncr,
		},
		{
			Name:      "atomic-decr",
			Usage:     "decrement counter if its value equals BEFORE",
			ArgsUsage: "BEFORE STEP",
			Action:    handleAtomicDecr,
		},
		{
			Name:      "add",
			Usage:     "add STEP to counter, retrying with atomic-incr on concurrent changes",
			ArgsUsage: "STEP",
			Action:    handleAdd,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func handleBeforeCommand(c *cli.Context) error {
	if c.GlobalBool("debug") {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}
	return nil
}

func handleServer(c *cli.Context) error {
	cfg, err := counter.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if cfg.LogFile != "" {
		f := logger.SetFile(logger.FileConfig{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileMaxSize,
			MaxBackups: cfg.LogFileMaxBackups,
			MaxAge:     cfg.LogFileMaxAge,
		})
		defer f.Close()
		_ = handleBeforeCommand(c)
	}
	l := logger.New("main")
	s, err := counter.New(*cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	l.Infoln("received signal:", <-ch)
	return nil
}

func newClient(c *cli.Context) (*rpcclient.Client, context.Context, context.CancelFunc) {
	clt := rpcclient.New(c.GlobalString("server"))
	ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration("timeout"))
	return clt, ctx, cancel
}

func parseArgs(c *cli.Context, n int) ([]int64, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("%s needs %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	values := make([]int64, n)
	for i := range values {
		v, err := strconv.ParseInt(c.Args().Get(i), 10, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func handleStatus(c *cli.Context) error {
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Println("executing status()")
	s, err := clt.Status(ctx)
	if err != nil {
		return err
	}
	b, err := jsonutil.MarshalCompactPretty(s)
	if err != nil {
		return err
	}
	fmt.Println("status of replica:")
	_, err = os.Stdout.Write(b)
	return err
}

func handleGet(c *cli.Context) error {
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Println("executing get()")
	cur, err := clt.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Println("counter value =", cur)
	return nil
}

func handleIncr(c *cli.Context) error {
	args, err := parseArgs(c, 1)
	if err != nil {
		return err
	}
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Printf("executing incr(%d)\n", args[0])
	cur, err := clt.Incr(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println("counter value =", cur)
	return nil
}

func handleDecr(c *cli.Context) error {
	args, err := parseArgs(c, 1)
	if err != nil {
		return err
	}
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Printf("executing decr(%d)\n", args[0])
	cur, err := clt.Decr(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println("counter value =", cur)
	return nil
}

func handleAtomicIncr(c *cli.Context) error {
	args, err := parseArgs(c, 2)
	if err != nil {
		return err
	}
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Printf("executing atomic_incr(before = %d, step = %d)\n", args[0], args[1])
	resp, err := clt.AtomicIncr(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if resp.Success {
		fmt.Printf("counter value = %d [incremented successfully]\n", resp.Cur)
	} else {
		fmt.Printf("counter value = %d [failed to increment]\n", resp.Cur)
	}
	return nil
}

func handleAtomicDecr(c *cli.Context) error {
	args, err := parseArgs(c, 2)
	if err != nil {
		return err
	}
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Printf("executing atomic_decr(before = %d, step = %d)\n", args[0], args[1])
	resp, err := clt.AtomicDecr(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if resp.Success {
		fmt.Printf("counter value = %d [decremented successfully]\n", resp.Cur)
	} else {
		fmt.Printf("counter value = %d [failed to decrement]\n", resp.Cur)
	}
	return nil
}

func handleAdd(c *cli.Context) error {
	args, err := parseArgs(c, 1)
	if err != nil {
		return err
	}
	clt, ctx, cancel := newClient(c)
	defer cancel()
	defer clt.Close()
	fmt.Printf("executing add(%d)\n", args[0])
	cur, err := clt.Update(ctx, func(int64) int64 { return args[0] })
	if err != nil {
		return err
	}
	fmt.Println("counter value =", cur)
	return nil
}
