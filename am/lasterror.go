package am

import "github.com/blockdb-go/blockdb/internal/utils"

// LastError returns the error, if any, left by desc's most recently
// completed operation. It mirrors the original library's AM_errno/
// AM_PrintError pairing for callers that inspect state out of band
// rather than checking the error InsertEntry/FindNextEntry already
// returned.
func LastError(desc int) error {
	h, err := get(desc)
	if err != nil {
		return err
	}
	return h.lastErr
}

// PrintError renders err the way the original AM_PrintError's switch
// table did: a short message per Kind, falling back to the error's own
// text when err holds no *utils.Error or the outermost one it holds
// carries no Kind.
func PrintError(err error) string {
	if err == nil {
		return "OK"
	}
	return utils.FormatError("am", err)
}

// Close closes every currently open index descriptor, mirroring the
// original library's AM_Close call at process shutdown rather than
// requiring callers to track and close each descriptor themselves.
func Close() error {
	for desc, h := range table {
		if h == nil {
			continue
		}
		if err := CloseIndex(desc); err != nil {
			return err
		}
	}
	return nil
}
