package training

import (
	"context"

	"github.com/trainware/microbatch/recording"
)

// LastRecordedSplitFactor reads the highest split factor a previous run
// recorded into the database at the given path, without the .sqlite3
// suffix. Seeding a new run with it skips rediscovering the split factor by
// re-exhausting the device. It returns 1 when the previous run never raised
// the factor.
func LastRecordedSplitFactor(path string) (int, error) {
	reader := recording.NewDataReader(path)
	defer reader.Close()

	reader.MapTable(recording.SplitRaiseTable, recording.SplitRaiseEntry{})

	results, _, err := reader.Query(
		context.Background(),
		recording.SplitRaiseTable,
		recording.QueryParams{
			OrderBy: "NewK DESC",
			Limit:   1,
		},
	)
	if err != nil {
		return 1, err
	}

	if len(results) == 0 {
		return 1, nil
	}

	return results[0].(*recording.SplitRaiseEntry).NewK, nil
}
