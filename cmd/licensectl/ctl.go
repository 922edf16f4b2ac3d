package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"purepresenter/internal/app"
	"purepresenter/internal/config"
	apperrors "purepresenter/internal/errors"
)

// storedLicense is the output of show
type storedLicense struct {
	Success   bool   `json:"success"`
	Key       string `json:"key"`
	Customer  string `json:"customer"`
	Activated string `json:"activated"`
}

// removal is the output of delete
type removal struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type failure struct {
	Error string `json:"error"`
}

// ctl runs one command against the local license files and prints JSON
type ctl struct {
	core *app.Core
	out  io.Writer
}

// run returns the process exit code
func (c *ctl) run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 2, errors.New("no command given")
	}

	switch args[0] {
	case "status":
		verdict := c.core.Manager.Check(ctx)
		if !verdict.Authorized {
			return 1, c.print(verdict)
		}
		return 0, c.print(verdict)

	case "activate":
		if len(args) < 2 {
			return 2, errors.New("usage: licensectl activate KEY [LABEL]")
		}
		label := strings.Join(args[2:], " ")
		result := c.core.Manager.Activate(ctx, args[1], label)
		if !result.Success {
			return 1, c.print(result)
		}
		return 0, c.print(result)

	case "show":
		out, ok := c.show(ctx)
		if !ok {
			return 1, c.print(out)
		}
		return 0, c.print(out)

	case "delete":
		out := c.delete(ctx)
		if !out.Success {
			return 1, c.print(out)
		}
		return 0, c.print(out)

	default:
		return 2, fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *ctl) show(ctx context.Context) (interface{}, bool) {
	state, err := c.core.Store.Load(ctx)
	switch {
	case errors.Is(err, apperrors.ErrNoLicense):
		return failure{Error: "No license file found"}, false
	case err != nil:
		return failure{Error: err.Error()}, false
	}

	out := storedLicense{
		Success:   true,
		Key:       state.LicenseKey,
		Customer:  state.CustomerInfo,
		Activated: "Unknown",
	}
	if out.Customer == "" {
		out.Customer = "Not specified"
	}
	if !state.ActivatedDate.IsZero() {
		out.Activated = state.ActivatedDate.UTC().Format(time.RFC3339)
	}
	return out, true
}

func (c *ctl) delete(ctx context.Context) removal {
	path := c.core.Store.Path()
	if !config.FileExists(path) {
		return removal{Success: false, Message: "No license file found to delete"}
	}
	if err := c.core.Store.Delete(ctx); err != nil {
		return removal{Success: false, Error: err.Error()}
	}
	return removal{Success: true, Message: "License file deleted successfully"}
}

func (c *ctl) print(v interface{}) error {
	return json.NewEncoder(c.out).Encode(v)
}
