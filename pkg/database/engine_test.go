package database_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/bee-sub000/pkg/database"
)

func TestDatabaseEngineParsing(t *testing.T) {

	engine, err := database.DatabaseEngine("pebble")
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)

	// parsing is case insensitive
	engine, err = database.DatabaseEngine("MapDB")
	require.NoError(t, err)
	require.Equal(t, database.EngineMapDB, engine)

	_, err = database.DatabaseEngine("rocksdb")
	require.Error(t, err)

	// restricting the allowed engines
	engine, err = database.DatabaseEngine("pebble", database.EnginePebble)
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)

	_, err = database.DatabaseEngine("mapdb", database.EnginePebble)
	require.Error(t, err)
}

func TestCheckDatabaseEngine(t *testing.T) {

	tempDir, err := ioutil.TempDir("", "databaseEngine")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "database")

	// mapdb is in-memory, no database info file is involved
	engine, err := database.CheckDatabaseEngine(dbPath, true, database.EngineMapDB)
	require.NoError(t, err)
	require.Equal(t, database.EngineMapDB, engine)
	require.NoFileExists(t, filepath.Join(dbPath, "dbinfo"))

	// creating a new database without specifying an engine must fail
	_, err = database.CheckDatabaseEngine(dbPath, true)
	require.Error(t, err)

	// opening a non-existing database must fail
	_, err = database.CheckDatabaseEngine(dbPath, false, database.EnginePebble)
	require.Error(t, err)

	// creating a new database writes the database info file
	engine, err = database.CheckDatabaseEngine(dbPath, true, database.EnginePebble)
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)
	require.FileExists(t, filepath.Join(dbPath, "dbinfo"))

	engineFromFile, err := database.LoadDatabaseEngineFromFile(filepath.Join(dbPath, "dbinfo"))
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engineFromFile)

	// reopening with the same engine succeeds
	engine, err = database.CheckDatabaseEngine(dbPath, true, database.EnginePebble)
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engine)

	// the engine in the database info file stays untouched
	engineFromFile, err = database.LoadDatabaseEngineFromFile(filepath.Join(dbPath, "dbinfo"))
	require.NoError(t, err)
	require.Equal(t, database.EnginePebble, engineFromFile)
}

func TestStoreWithDefaultSettings(t *testing.T) {

	tempDir, err := ioutil.TempDir("", "databaseStore")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := database.StoreWithDefaultSettings(filepath.Join(tempDir, "mapdb"), true, database.EngineMapDB)
	require.NoError(t, err)
	require.NotNil(t, store)

	require.NoError(t, store.Set([]byte("key"), []byte("value")))

	value, err := store.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)

	require.NoError(t, store.Flush())
	require.NoError(t, store.Close())
}
