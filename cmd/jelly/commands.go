package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/app/services"
)

// fileResult is one line of `jelly check` output.
type fileResult struct {
	File string `json:"file"`
	*dto.CheckResponse
}

func (c *cli) checkCommand() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Check flow graphs and print the checked graph or the error",
		Long: `Check reads each FILE as either a JSON array of components or a check
request object with "components", "compiled" and "origin_apis". Results are
printed in argument order. The exit status is non-zero when any graph is
rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			return c.runCheck(cmd.Context(), files, jobs)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files checked at once")
	return cmd
}

func (c *cli) runCheck(ctx context.Context, files []string, jobs int) error {
	s, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, file := range files {
		g.Go(func() error {
			req, err := readRequest(file)
			if err != nil {
				return err
			}
			req.Save = c.cfg.Store.Driver != ""
			resp, err := s.Check(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = fileResult{File: file, CheckResponse: resp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rejected := false
	for _, r := range results {
		if err := c.print(r); err != nil {
			return err
		}
		rejected = rejected || r.Status == dto.CheckStatusRejected
	}
	if rejected {
		return errRejected
	}
	return nil
}

func (c *cli) anchorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "anchors FILE",
		Short: "List the stored payloads a flow graph refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(s *services.CheckService) error {
				resp, err := s.Anchors(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := c.print(resp); err != nil {
					return err
				}
				if resp.Error != nil {
					return errRejected
				}
				return nil
			})
		},
	}
}

func (c *cli) codesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "codes FILE",
		Short: "List the snippets of a flow graph that need compiling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(s *services.CheckService) error {
				resp, err := s.OriginCodes(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := c.print(resp); err != nil {
					return err
				}
				if resp.Error != nil {
					return errRejected
				}
				return nil
			})
		},
	}
}

func (c *cli) withService(ctx context.Context, fn func(*services.CheckService) error) error {
	s, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (c *cli) print(v any) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// readRequest accepts a bare component array or a full request object.
func readRequest(file string) (*dto.CheckRequest, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return &dto.CheckRequest{Components: data}, nil
	}
	var req dto.CheckRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return &req, nil
}
