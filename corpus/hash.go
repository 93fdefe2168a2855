package corpus

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// fileStamp is the (path, size, mtime) tuple that feeds the corpus hash.
type fileStamp struct {
	path    string
	size    int64
	mtimeNs int64
}

// hashFileStamps folds an ordered list of file stamps into a single 64-bit
// digest using xxhash. Order matters: callers must sort stamps by path
// first so the hash is stable across directory-walk order.
func hashFileStamps(stamps []fileStamp) uint64 {
	d := xxhash.New()
	for _, s := range stamps {
		_, _ = d.WriteString(s.path)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(strconv.FormatInt(s.size, 10))
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(strconv.FormatInt(s.mtimeNs, 10))
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
