package archive

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/ringercore-go/pkg/fileio"
	"github.com/lk2023060901/ringercore-go/pkg/streamable"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

var testRegistry = streamable.NewRegistry()

type entry struct {
	streamable.Base
	Title string
	Score float64
}

var entryClass = testRegistry.MustRegister(streamable.ClassSpec{
	Name:   "Entry",
	Module: "ringer.archive",
	New:    func() streamable.Object { return &entry{} },
})

func (*entry) Class() *streamable.Class { return entryClass }

type ArchiveSuite struct {
	suite.Suite
	open func(dir string) (Archive, error)
	a    Archive
	ctx  context.Context
}

func (s *ArchiveSuite) SetupTest() {
	s.ctx = context.Background()
	a, err := s.open(s.T().TempDir())
	s.Require().NoError(err)
	s.a = a
}

func (s *ArchiveSuite) TearDownTest() {
	s.NoError(s.a.Close())
}

func (s *ArchiveSuite) TestPutGet() {
	raw := streamable.RawDict{"name": "plain", "n": 2}
	s.Require().NoError(s.a.Put(s.ctx, "plain", raw))
	got, err := s.a.Get(s.ctx, "plain")
	s.Require().NoError(err)
	s.Equal(streamable.RawDict{"name": "plain", "n": int64(2)}, got)

	s.Require().NoError(s.a.Put(s.ctx, "plain", streamable.RawDict{"name": "overwritten"}))
	got, err = s.a.Get(s.ctx, "plain")
	s.Require().NoError(err)
	s.Equal("overwritten", got["name"])
}

func (s *ArchiveSuite) TestObjects() {
	s.Require().NoError(PutObject(s.ctx, s.a, "runs/1", &entry{Title: "first", Score: 0.5}))
	obj, err := GetObject(s.ctx, s.a, testRegistry, "runs/1")
	s.Require().NoError(err)
	s.Equal("first", obj.(*entry).Title)
	s.Equal(0.5, obj.(*entry).Score)
}

func (s *ArchiveSuite) TestKeysAndDelete() {
	for _, key := range []string{"runs/2", "runs/1", "other"} {
		s.Require().NoError(s.a.Put(s.ctx, key, streamable.RawDict{"key": key}))
	}
	keys, err := s.a.Keys(s.ctx, "runs/")
	s.Require().NoError(err)
	s.Equal([]string{"runs/1", "runs/2"}, keys)

	all, err := s.a.Keys(s.ctx, "")
	s.Require().NoError(err)
	s.Len(all, 3)

	s.Require().NoError(s.a.Delete(s.ctx, "runs/1"))
	_, err = s.a.Get(s.ctx, "runs/1")
	s.ErrorIs(err, merr.ErrIoKeyNotFound)
	s.ErrorIs(s.a.Delete(s.ctx, "runs/1"), merr.ErrIoKeyNotFound)
}

func (s *ArchiveSuite) TestMissing() {
	_, err := s.a.Get(s.ctx, "nope")
	s.ErrorIs(err, merr.ErrIoKeyNotFound)
	s.ErrorIs(s.a.Put(s.ctx, "", streamable.RawDict{}), merr.ErrParameterMissing)
}

func TestMemBlob(t *testing.T) {
	suite.Run(t, &ArchiveSuite{open: func(string) (Archive, error) {
		return Open(context.Background(), "mem://", fileio.DefaultConfig())
	}})
}

func TestFileBlob(t *testing.T) {
	suite.Run(t, &ArchiveSuite{open: func(dir string) (Archive, error) {
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(dir)}
		return Open(context.Background(), u.String(), fileio.Config{Format: "proto", Compression: "zstd"})
	}})
}

func TestBadgerMemory(t *testing.T) {
	suite.Run(t, &ArchiveSuite{open: func(string) (Archive, error) {
		return Open(context.Background(), BadgerMemory, fileio.DefaultConfig())
	}})
}

func TestBadgerDisk(t *testing.T) {
	suite.Run(t, &ArchiveSuite{open: func(dir string) (Archive, error) {
		return Open(context.Background(), "badger://"+dir, fileio.Config{Compression: "none"})
	}})
}

func TestOpenBadConfig(t *testing.T) {
	_, err := Open(context.Background(), "mem://", fileio.Config{Format: "xml"})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
