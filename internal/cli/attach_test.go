package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/scene"
)

const page = `<!doctype html>
<html><body>
  <div id="fig" class="dynamic-svg" data-url="fig.svg" data-width="400" data-height="300" data-hide='[".legend"]'></div>
  <div id="gone" class="dynamic-svg" data-url="missing.svg"></div>
  <div class="other" data-url="ignored.svg"></div>
</body></html>`

var partial = loader.Func(func(ctx context.Context, url string) (*scene.Document, error) {
	if strings.Contains(url, "missing") {
		return nil, apperrors.New(apperrors.ErrCodeFileNotFound, "%s not found", url)
	}
	return static(ctx, url)
})

func TestRunAttach(t *testing.T) {
	out := t.TempDir()
	opts := attachOpts{base: "/site/index.html", outDir: out, concurrency: 2}

	reg, err := newTestCLI().runAttach(context.Background(), partial, strings.NewReader(page), opts)
	if err == nil {
		t.Error("runAttach() should report the failed load")
	}
	if reg == nil {
		t.Fatal("runAttach() returned no registry")
	}
	if reg.Len() != 2 {
		t.Fatalf("hosts = %d, want 2", reg.Len())
	}

	rows := hostRows(reg)
	byID := map[string]hostRow{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	if r := byID["fig"]; r.Err != nil || r.Hidden != 1 || r.Fit.Scale != 2 {
		t.Errorf("fig row = %+v", r)
	}
	if r := byID["gone"]; !apperrors.Is(r.Err, apperrors.ErrCodeNotLoaded) {
		t.Errorf("gone row err = %v", r.Err)
	}

	if _, err := os.Stat(filepath.Join(out, "fig.svg")); err != nil {
		t.Errorf("fig.svg not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "gone.svg")); !os.IsNotExist(err) {
		t.Errorf("gone.svg should not be written, stat err = %v", err)
	}

	table := hostTable(rows)
	for _, want := range []string{"fig", "gone", "fig.svg"} {
		if !strings.Contains(table, want) {
			t.Errorf("host table missing %q:\n%s", want, table)
		}
	}
}

func TestRunAttachEmptyPage(t *testing.T) {
	reg, err := newTestCLI().runAttach(context.Background(), static, strings.NewReader("<p>nothing</p>"), attachOpts{})
	if err != nil {
		t.Fatalf("runAttach() error: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("hosts = %d, want 0", reg.Len())
	}
}
