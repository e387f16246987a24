package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal/mcpserver"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the vault to MCP clients over stdio",
		Action: func(_ context.Context, cmd *cli.Command) error {
			env, cleanup, err := openVault(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			return mcpserver.New(env.svc, env.store).ServeStdio()
		},
	}
}
