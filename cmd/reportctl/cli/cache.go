package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/finreports/internal/reports"
)

// BumpCacheCommand invalidates every cached report and prints the new version.
func BumpCacheCommand(ctx context.Context, client *redis.Client, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	version, err := reports.NewCache(client, 0).Bump(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "bump-cache: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "report cache version %d\n", version)
	return 0
}
