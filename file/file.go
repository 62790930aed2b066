package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

type FileNumToPath map[uint32]string

func CreateFileNumMap(paths []string) FileNumToPath {
	res := make(FileNumToPath)
	for i, v := range paths {
		res[uint32(i)] = v
	}
	return res
}

// OutputPath is the MIDI file written for input inside outDir.
func OutputPath(input, outDir string) string {
	base := filepath.Base(input)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".mid")
}

// OutputPaths maps every numbered input to its MIDI file. Inputs that would
// collide on the same name get their number appended.
func OutputPaths(inputs FileNumToPath, outDir string) FileNumToPath {
	seen := make(map[string]int)
	for _, in := range inputs {
		seen[OutputPath(in, outDir)]++
	}
	res := make(FileNumToPath, len(inputs))
	for num, in := range inputs {
		out := OutputPath(in, outDir)
		if seen[out] > 1 {
			out = fmt.Sprintf("%s-%03d.mid", strings.TrimSuffix(out, ".mid"), num)
		}
		res[num] = out
	}
	return res
}
