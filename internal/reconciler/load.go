package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc"

	"reconciliation-engine/internal/blobstore"
	"reconciliation-engine/internal/classifier"
	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/fileio"
	"reconciliation-engine/internal/gatewayfile"
	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

// Loader is the I/O shell around the pure Reconciler: it validates the
// gateway directory holds exactly the expected pair of files, reads and
// normalizes both, and classifies them, per §4.5.2 steps 1 and 3.
type Loader struct {
	blob       blobstore.Store
	reader     *fileio.Reader
	normalizer *gatewayfile.Normalizer
	classifier *classifier.Classifier
	logger     logger.Logger
}

// NewLoader constructs a Loader from its collaborators.
func NewLoader(blob blobstore.Store, reader *fileio.Reader, normalizer *gatewayfile.Normalizer, cls *classifier.Classifier, log logger.Logger) *Loader {
	return &Loader{blob: blob, reader: reader, normalizer: normalizer, classifier: cls, logger: log.WithComponent("reconciler.loader")}
}

// LoadGatewayTables implements step 1 (validate files) and the read/
// normalize/classify portion of step 3: the gateway directory must
// contain exactly one file matching {base}.* and one matching
// workpay_{base}.*; both are read, normalized, and classified.
func (l *Loader) LoadGatewayTables(ctx context.Context, base string, pair config.GatewayPair, runID string) (classifier.Set, error) {
	files, err := l.blob.List(ctx, base)
	if err != nil {
		return classifier.Set{}, err
	}

	extFile, err := findFile(files, base)
	if err != nil {
		return classifier.Set{}, err
	}
	intlFile, err := findFile(files, "workpay_"+base)
	if err != nil {
		return classifier.Set{}, err
	}

	// Blob reads and table normalization for the two sides are independent
	// until classification, so they run concurrently — the pipeline is
	// pure CPU-bound work between the blob-read suspension points, which
	// SPEC_FULL.md §5 explicitly calls out as freely parallelizable.
	var extTable, intlTable *gatewayfile.Table
	var extErr, intlErr error
	var wg conc.WaitGroup
	wg.Go(func() { extTable, extErr = l.readAndNormalize(ctx, base, extFile, pair.External.Layout) })
	wg.Go(func() { intlTable, intlErr = l.readAndNormalize(ctx, base, intlFile, pair.Internal.Layout) })
	wg.Wait()
	if extErr != nil {
		return classifier.Set{}, extErr
	}
	if intlErr != nil {
		return classifier.Set{}, intlErr
	}

	set := l.classifier.Classify(extTable, intlTable, pair, base, runID, extFile, intlFile)
	return set, nil
}

func (l *Loader) readAndNormalize(ctx context.Context, base, filename string, layout config.ColumnLayout) (*gatewayfile.Table, error) {
	data, err := l.blob.Read(ctx, base, filename)
	if err != nil {
		return nil, err
	}
	grid, err := l.reader.Read(filename, data, layout.HeaderRowConfig)
	if err != nil {
		return nil, err
	}
	table := gatewayfile.NewTable(grid)
	if err := l.normalizer.Normalize(table, layout, base); err != nil {
		return nil, err
	}
	return table, nil
}

// findFile returns the single file in files whose base name (stripped of
// extension) equals stem, case-insensitively. Missing or ambiguous (more
// than one candidate) both fail with ReconciliationError, since §4.5.2
// step 1 requires "exactly the two expected files".
func findFile(files []string, stem string) (string, error) {
	var candidates []string
	lowerStem := strings.ToLower(stem)
	for _, f := range files {
		name := f
		if dot := strings.LastIndex(name, "."); dot > 0 {
			name = name[:dot]
		}
		if strings.ToLower(name) == lowerStem {
			candidates = append(candidates, f)
		}
	}
	switch len(candidates) {
	case 0:
		return "", rerrors.New(rerrors.KindReconciliationError, fmt.Sprintf("missing expected file %q", stem)).
			WithSuggestion("upload the gateway's statement/ledger pair before running a reconciliation")
	case 1:
		return candidates[0], nil
	default:
		return "", rerrors.New(rerrors.KindReconciliationError, fmt.Sprintf("multiple candidate files for %q: %v", stem, candidates)).
			WithSuggestion("remove the extra file so exactly one statement is present per gateway side")
	}
}
