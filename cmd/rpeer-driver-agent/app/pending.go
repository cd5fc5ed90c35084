package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/routepeer-io/routepeer/cmd/rpeer-driver-agent/app/options"
	"github.com/routepeer-io/routepeer/internal/driveragent/queue"
)

// newPendingCommand lists the queue of a running agent through its local
// API. The queue file itself is locked by the agent.
func newPendingCommand(opts *options.AgentOptions) *cobra.Command {
	var rejected bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List items waiting for the hub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			base := "http://" + opts.HttpOptions.Addr
			if rejected {
				var items []*queue.RejectedItem
				if err := getJSON(ctx, base+"/v1/rejected", &items); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rejectedTable(items))
				return nil
			}

			var items []*queue.PendingItem
			if err := getJSON(ctx, base+"/v1/pending", &items); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pendingTable(items, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&rejected, "rejected", false, "List items the hub refused instead.")
	return cmd
}

func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("agent API not reachable, is rpeer-driver-agent running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent API returned %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pendingTable(items []*queue.PendingItem, now time.Time) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("ID", "KIND", "ROUTE", "STOP", "DETAIL", "AGE")
	for _, it := range items {
		table.AddRow(it.ID, it.Kind, it.RouteID, it.StopID, detail(it), it.Age(now).Truncate(time.Second))
	}
	return table
}

func rejectedTable(items []*queue.RejectedItem) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 60
	table.Wrap = true
	table.AddRow("ID", "KIND", "ROUTE", "STOP", "DETAIL", "REJECTED AT", "REASON")
	for _, dl := range items {
		it := dl.Item
		table.AddRow(it.ID, it.Kind, it.RouteID, it.StopID, detail(it), dl.RejectedAt.Format(time.RFC3339), dl.Reason)
	}
	return table
}

func detail(it *queue.PendingItem) string {
	switch {
	case it.Status != nil:
		return string(it.Status.Status)
	case it.Photo != nil:
		return it.Photo.ContentType
	case it.Location != nil:
		return fmt.Sprintf("%.5f,%.5f ±%.0fm", it.Location.Latitude, it.Location.Longitude, it.Location.Accuracy)
	}
	return ""
}
