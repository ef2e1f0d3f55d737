//go:build js

package export

import (
	"errors"

	marathon "github.com/lucasjlepore/marathon-check"
)

func marshalRunsParquet([]marathon.Run) ([]byte, error) {
	return nil, errors.New("in-memory parquet is not available in js builds (use csv)")
}
