// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCanApply(t *testing.T) {
	empty := &Plan{Changes: NewChanges()}
	assert.False(t, empty.CanApply())

	errored := &Plan{Changes: NewChanges(), Errored: true}
	assert.False(t, errored.CanApply())

	withChange := &Plan{Changes: NewChanges()}
	withChange.Changes.Resources = append(withChange.Changes.Resources, &ResourceInstanceChangeSrc{
		Addr:   testInstance("a"),
		Action: Create,
	})
	assert.True(t, withChange.CanApply())
}
