package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"mmbcheck/internal/testkit"
)

const maxSeedBytes = 64 << 10

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addFixtureSeeds(f)
}

// addTestdataSeeds adds every .mmb file under the repository testdata
// directory, when there is one.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".mmb" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(data))
		return nil
	})
}

func addFixtureSeeds(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("MM0B"))
	for _, data := range [][]byte{
		testkit.Minimal(),
		testkit.Propositional(),
		testkit.BadTheoremProof(),
		testkit.MismatchedSignature(),
		testkit.MismatchedArity(),
		testkit.MismatchedTermArity(),
		testkit.MalformedUnify(),
	} {
		f.Add(clampSeed(data))
	}
}

func clampSeed(data []byte) []byte {
	if len(data) > maxSeedBytes {
		data = data[:maxSeedBytes]
	}
	return append([]byte(nil), data...)
}
