package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent persisted samples or alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show samples")
	}
	if closeStore != nil {
		defer closeStore()
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer writer.Flush()

	if opts.Alerts {
		alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			fmt.Fprintln(os.Stdout, "no alerts found")
			return nil
		}

		fmt.Fprintln(writer, "Fired (UTC)\tKind\tPrice\tThreshold")
		for _, alert := range alerts {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\n",
				alert.FiredAt.UTC().Format(time.RFC3339),
				alert.Kind,
				alert.Price.StringFixed(2),
				alert.Threshold.StringFixed(2),
			)
		}
		return nil
	}

	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(os.Stdout, "no samples found")
		return nil
	}

	fmt.Fprintln(writer, "Time (UTC)\tPrice\tSource")
	for _, sample := range samples {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\n",
			sample.At.UTC().Format(time.RFC3339),
			sample.Price.StringFixed(2),
			sanitizeInline(sample.Source),
		)
	}

	if count, err := store.CountSamples(ctx); err == nil {
		fmt.Fprintf(writer, "\ntotal samples: %d\n", count)
	}

	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
