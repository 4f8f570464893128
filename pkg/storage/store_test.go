package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbSetup struct {
	name   string
	create func(testing.TB) Store
}

type dbTestFunction func(*testing.T, Store)

func newLevelDBForTesting(t testing.TB) Store {
	s, err := NewLevelDBStore(LevelDBOptions{DataDirectoryPath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func newBoltStoreForTesting(t testing.TB) Store {
	s, err := NewBoltDBStore(BoltDBOptions{FilePath: filepath.Join(t.TempDir(), "sub", "test_bolt_db")})
	require.NoError(t, err)
	return s
}

func newMemoryStoreForTesting(t testing.TB) Store {
	return NewMemoryStore()
}

func testStoreGetNonExistent(t *testing.T, s Store) {
	_, err := s.Get([]byte("sparse"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func testStorePutGetDelete(t *testing.T, s Store) {
	key, value := []byte("sparse"), []byte("rocks")
	require.NoError(t, s.Put(key, value))

	v, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, v)

	require.NoError(t, s.Put(key, []byte("rolls")))
	v, err = s.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("rolls"), v)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)
	// Deleting missing key is not an error.
	require.NoError(t, s.Delete(key))
}

func pushSeekDataSet(t *testing.T, s Store) []KeyValue {
	kvs := []KeyValue{
		{[]byte("10"), []byte("bar")},
		{[]byte("11"), []byte("bara")},
		{[]byte("20"), []byte("barb")},
		{[]byte("21"), []byte("barc")},
		{[]byte("22"), []byte("bard")},
		{[]byte("30"), []byte("bare")},
		{[]byte("31"), []byte("barf")},
	}
	for _, v := range kvs {
		require.NoError(t, s.Put(v.Key, v.Value))
	}
	return kvs
}

func testStoreSeek(t *testing.T, s Store) {
	kvs := pushSeekDataSet(t, s)
	collect := func(rng SeekRange, limit int) []KeyValue {
		var actual []KeyValue
		s.Seek(rng, func(k, v []byte) bool {
			actual = append(actual, KeyValue{Key: bytes.Clone(k), Value: bytes.Clone(v)})
			return limit <= 0 || len(actual) < limit
		})
		return actual
	}

	t.Run("prefix", func(t *testing.T) {
		require.Equal(t, kvs[2:5], collect(SeekRange{Prefix: []byte("2")}, 0))
	})
	t.Run("prefix and start", func(t *testing.T) {
		require.Equal(t, kvs[3:5], collect(SeekRange{Prefix: []byte("2"), Start: []byte("1")}, 0))
	})
	t.Run("backwards", func(t *testing.T) {
		require.Equal(t, []KeyValue{kvs[4], kvs[3], kvs[2]}, collect(SeekRange{Prefix: []byte("2"), Backwards: true}, 0))
	})
	t.Run("backwards with start", func(t *testing.T) {
		require.Equal(t, []KeyValue{kvs[3], kvs[2]}, collect(SeekRange{Prefix: []byte("2"), Start: []byte("1"), Backwards: true}, 0))
	})
	t.Run("early stop", func(t *testing.T) {
		require.Equal(t, kvs[:2], collect(SeekRange{}, 2))
	})
	t.Run("everything", func(t *testing.T) {
		require.Equal(t, kvs, collect(SeekRange{}, 0))
	})
	t.Run("missing prefix", func(t *testing.T) {
		require.Empty(t, collect(SeekRange{Prefix: []byte("4")}, 0))
	})
}

func testStoreVersion(t *testing.T, s Store) {
	_, err := Version(s)
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, PutVersion(s, "0.1.0"))
	v, err := Version(s)
	require.NoError(t, err)
	require.Equal(t, "0.1.0", v)
}

func TestAllDBs(t *testing.T) {
	var dbSetups = []dbSetup{
		{"BoltDB", newBoltStoreForTesting},
		{"LevelDB", newLevelDBForTesting},
		{"Memory", newMemoryStoreForTesting},
	}
	var tests = []dbTestFunction{
		testStoreGetNonExistent,
		testStorePutGetDelete,
		testStoreSeek,
		testStoreVersion,
	}
	for _, db := range dbSetups {
		for _, test := range tests {
			s := db.create(t)
			t.Run(db.name, func(t *testing.T) {
				test(t, s)
			})
			require.NoError(t, s.Close())
		}
	}
}

func TestKeyPrefix(t *testing.T) {
	require.Equal(t, []byte{0x01}, TXJournal.Bytes())
	require.Equal(t, []byte{0x02, 'a', 'b'}, MetaDocument.Key([]byte("ab")))
}

func TestStorageNames(t *testing.T) {
	tmp := t.TempDir()
	cfg := DBConfiguration{
		LevelDBOptions: LevelDBOptions{
			DataDirectoryPath: filepath.Join(tmp, "level"),
		},
		BoltDBOptions: BoltDBOptions{
			FilePath: filepath.Join(tmp, "bolt"),
		},
	}
	for _, name := range []string{BoltDB, LevelDB, InMemoryDB, ""} {
		t.Run(name, func(t *testing.T) {
			cfg.Type = name
			s, err := NewStore(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
	cfg.Type = "redis"
	_, err := NewStore(cfg)
	require.Error(t, err)
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	v := []byte("value")
	require.NoError(t, s.Put([]byte("k"), v))
	v[0] = 'V'
	got, err := s.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}
