package core_test

import (
	"testing"

	"idcard/testutil"
)

func TestCoreIsPlatformNeutral(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(
		testutil.AdapterImportForbidden,
		testutil.PlatformSDKForbidden,
	), "the registry service must not depend on a front end")
}
