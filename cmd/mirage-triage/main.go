// mirage-triage — offline clustering report over the event store
// Usage: go run ./cmd/mirage-triage [--db PATH]
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/mirage/pkg/cluster"
	"github.com/lucid-vigil/mirage/pkg/profile"
	"github.com/lucid-vigil/mirage/pkg/storage"
)

func main() {
	dbPath := flag.String("db", "data/mirage.db", "path to the event store")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	store, err := storage.OpenSQLite(*dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rows, err := store.ListFeatureVectors()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load features: %v\n", err)
		os.Exit(1)
	}

	assignments := cluster.GroupSessions(rows)
	if len(assignments) == 0 {
		fmt.Println("Not enough sessions to cluster (need at least 2 with features).")
		return
	}

	labels := make(map[string]profile.Label)
	if profiles, err := store.ListProfiles(); err == nil {
		for _, p := range profiles {
			labels[p.SessionID] = p.Label
		}
	}

	byCluster := make(map[int][]string)
	for sid, cid := range assignments {
		byCluster[cid] = append(byCluster[cid], sid)
	}

	ids := make([]int, 0, len(byCluster))
	for cid := range byCluster {
		ids = append(ids, cid)
	}
	sort.Ints(ids)

	fmt.Printf("=== Session clusters (%d sessions) ===\n\n", len(assignments))
	for _, cid := range ids {
		members := byCluster[cid]
		sort.Strings(members)

		if cid == cluster.Noise {
			fmt.Printf("noise (%d sessions)\n", len(members))
		} else {
			fmt.Printf("cluster %d (%d sessions)\n", cid, len(members))
		}
		for _, sid := range members {
			label := labels[sid]
			if label == "" {
				label = profile.LabelUnknown
			}
			fmt.Printf("  %s  %s\n", sid, label)
		}
		fmt.Println()
	}
}
