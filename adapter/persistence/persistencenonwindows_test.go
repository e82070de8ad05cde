//go:build !windows

package persistence

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ramiroaisen/nedb-types/domain"
)

// Loading and appending repeatedly must release every file descriptor.
//
// Not run on Windows as there is no clean way to set maximum file
// descriptors.
func (s *PersistenceTestSuite) TestDoesNotLeakFileDescriptors() {
	ctx, cancel := context.WithTimeout(s.T().Context(), 5*time.Second)
	defer cancel()

	const n = 64

	var original syscall.Rlimit
	s.Require().NoError(syscall.Getrlimit(syscall.RLIMIT_NOFILE, &original))
	limit := syscall.Rlimit{Cur: 128, Max: original.Max}
	s.Require().NoError(syscall.Setrlimit(syscall.RLIMIT_NOFILE, &limit))
	defer func() {
		s.NoError(syscall.Setrlimit(syscall.RLIMIT_NOFILE, &original))
	}()

	// the limit is effective
	probe := filepath.Join(s.dir, "probe")
	var handles []*os.File
	var err error
	for range 2 * n {
		var f *os.File
		if f, err = os.OpenFile(probe, os.O_RDONLY|os.O_CREATE, 0o666); err != nil {
			break
		}
		handles = append(handles, f)
	}
	s.ErrorIs(err, syscall.EMFILE)
	for _, f := range handles {
		f.Close()
	}

	p := s.newPersistence()
	for i := range 2 * n {
		docs, _, err := p.LoadDatabase(ctx)
		s.Require().NoError(err)
		removed := make([]domain.Document, len(docs))
		for k, doc := range docs {
			removed[k] = domain.DeletedRecord(doc.ID())
		}
		s.Require().NoError(p.PersistNewState(ctx, removed...))
		s.Require().NoError(p.PersistNewState(ctx, s.doc(M{"_id": strconv.Itoa(i), "hello": "world"})))
	}
}
