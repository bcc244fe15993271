package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/pipeline"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Request string `arg:"" type:"existingfile" help:"JSON request file with email, task, round, nonce, secret, brief and attachments"`
}

func (c *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := root.loadConfig()
	if err != nil {
		return err
	}

	// #nosec G304 -- the request file is chosen by the operator
	body, err := os.ReadFile(c.Request)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "failed to read request file").
			WithContext("path", c.Request).
			Build()
	}
	req, err := pipeline.Validate(body, cfg.Secret)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode result").Build()
	}
	fmt.Println(string(out))
	return nil
}
