// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/knpvt5/auth/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("TOKEN_EXPIRED").Errorf("token expired")
	errutil.AssertErrorCode(t, err, "TOKEN_EXPIRED")
}

func TestAssertErrorCode_DeepestCodeWins(t *testing.T) {
	inner := oops.Code("STORE_UNAVAILABLE").Errorf("read failed")
	errutil.AssertErrorCode(t, oops.With("operation", "register").Wrap(inner), "STORE_UNAVAILABLE")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("user_id", "01J").Errorf("test error")
	errutil.AssertErrorContext(t, err, "user_id", "01J")
}

func TestAssertErrorMessage(t *testing.T) {
	err := oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	errutil.AssertErrorMessage(t, err, "invalid email or password")
}
