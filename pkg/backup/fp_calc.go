package backup

import (
	"github.com/zhengshuai-xiao/xbackup/pkg/store"
)

// CalcFP returns the fingerprint a chunk is stored under.
func CalcFP(buf []byte) store.Digest {
	fp := store.DigestOf(buf)
	logger.Tracef("CalcFP:fp:%s", fp)
	return fp
}
