package pgstore_test

import (
	"testing"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/pgstore"
	"github.com/artzaitsev/submission-scheduler/pkg/work/worktest"
	testutil "github.com/artzaitsev/submission-scheduler/test/util"
)

func TestStore_SatisfiesWorkPropertySuite(t *testing.T) {
	db := testutil.SetupTestDatabase(t)
	worktest.RunSuite(t, func() work.Repository { return pgstore.New(db) })
}
