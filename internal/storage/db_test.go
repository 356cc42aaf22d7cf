package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestGetMissingKey() {
	value, ok, err := suite.db.Get("missing")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
	assert.Empty(suite.T(), value)
}

func (suite *DBTestSuite) TestSetAndGet() {
	require.NoError(suite.T(), suite.db.Set("spending-tracker", `{"userId":"default","months":{}}`))

	value, ok, err := suite.db.Get("spending-tracker")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), `{"userId":"default","months":{}}`, value)
}

func (suite *DBTestSuite) TestSetOverwrites() {
	require.NoError(suite.T(), suite.db.Set("k", "first"))
	require.NoError(suite.T(), suite.db.Set("k", "second"))

	value, ok, err := suite.db.Get("k")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "second", value)

	keys, err := suite.db.Keys()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"k"}, keys)
}

func (suite *DBTestSuite) TestDelete() {
	require.NoError(suite.T(), suite.db.Set("a", "1"))
	require.NoError(suite.T(), suite.db.Set("b", "2"))
	require.NoError(suite.T(), suite.db.Delete("a"))
	require.NoError(suite.T(), suite.db.Delete("never-set"))

	keys, err := suite.db.Keys()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"b"}, keys)
}

func (suite *DBTestSuite) TestSetAfterCloseFails() {
	require.NoError(suite.T(), suite.db.Close())

	err := suite.db.Set("k", "v")
	require.Error(suite.T(), err)

	var storageErr *Error
	require.True(suite.T(), errors.As(err, &storageErr))
	assert.Equal(suite.T(), "set", storageErr.Op)
	assert.Equal(suite.T(), "k", storageErr.Key)
	suite.db = nil
}

func TestDBPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Set("spending-tracker-income", `{"userId":"default","months":{}}`))
	require.NoError(t, db.Close())

	reopened, err := NewDB(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get("spending-tracker-income")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"userId":"default","months":{}}`, value)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
