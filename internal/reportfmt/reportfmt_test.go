// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2023 HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package reportfmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/opentofu/tofucore/internal/addrs"
	"github.com/opentofu/tofucore/internal/plans"
	"github.com/opentofu/tofucore/internal/state"
)

func widgetType() cty.Type {
	return cty.Object(map[string]cty.Type{
		"name":        cty.String,
		"computed_id": cty.String,
	})
}

func widgetInstance(name string) addrs.ResourceInstance {
	return addrs.ResourceInstance{
		Resource: addrs.Resource{Mode: addrs.ManagedResourceMode, Type: "widget", Name: name},
		Key:      addrs.NoKey,
	}
}

func encode(t *testing.T, v cty.Value) plans.DynamicValue {
	t.Helper()
	dv, err := plans.NewDynamicValue(v, widgetType())
	require.NoError(t, err)
	return dv
}

func TestBuildResourceChanges_DecodesCreate(t *testing.T) {
	changes := plans.NewChanges()
	changes.Resources = append(changes.Resources, &plans.ResourceInstanceChangeSrc{
		Addr:       widgetInstance("a"),
		ModulePath: "",
		Action:     plans.Create,
		Before:     nil,
		After: encode(t, cty.ObjectVal(map[string]cty.Value{
			"name":        cty.StringVal("alpha"),
			"computed_id": cty.NullVal(cty.String),
		})),
	})

	out, errs := BuildResourceChanges(changes, map[string]cty.Type{"widget": widgetType()})
	require.Empty(t, errs)
	require.Len(t, out, 1)
	assert.Equal(t, "widget.a", out[0].Address)
	assert.Equal(t, plans.Create, out[0].Action)
	assert.True(t, out[0].Prior.IsNull())
	assert.Equal(t, "alpha", out[0].Planned.GetAttr("name").AsString())
}

func TestBuildResourceChanges_MissingSchemaReportsErrorNotPanic(t *testing.T) {
	changes := plans.NewChanges()
	changes.Resources = append(changes.Resources, &plans.ResourceInstanceChangeSrc{
		Addr:   widgetInstance("a"),
		Action: plans.Create,
		After:  encode(t, cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("x"), "computed_id": cty.NullVal(cty.String)})),
	})

	out, errs := BuildResourceChanges(changes, map[string]cty.Type{})
	assert.Empty(t, out)
	require.Len(t, errs, 1)
}

func TestFormatValue_ScalarsAndCollections(t *testing.T) {
	assert.Equal(t, `"alpha"`, formatValue(cty.StringVal("alpha")))
	assert.Equal(t, "true", formatValue(cty.True))
	assert.Equal(t, "false", formatValue(cty.False))
	assert.Equal(t, "null", formatValue(cty.NullVal(cty.String)))
	assert.Equal(t, "(known after apply)", formatValue(cty.UnknownVal(cty.String)))
	assert.Equal(t, "[\"a\", \"b\"]", formatValue(cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")})))

	big := make([]cty.Value, 0, 6)
	for i := 0; i < 6; i++ {
		big = append(big, cty.StringVal("x"))
	}
	assert.Equal(t, "[...6 items]", formatValue(cty.ListVal(big)))
}

func TestPrintPlan_NoChangesPrintsUpToDate(t *testing.T) {
	var buf bytes.Buffer
	PrintPlan(&buf, []ResourceChange{{Action: plans.NoOp}}, nil)
	assert.Contains(t, buf.String(), "No changes. Infrastructure is up-to-date.")
}

func TestPrintPlan_CreateRendersLegendAndSummary(t *testing.T) {
	rc := ResourceChange{
		Address:      "widget.a",
		ResourceType: "widget",
		Action:       plans.Create,
		Prior:        cty.NullVal(widgetType()),
		Planned: cty.ObjectVal(map[string]cty.Value{
			"name":        cty.StringVal("alpha"),
			"computed_id": cty.UnknownVal(cty.String),
		}),
	}
	var buf bytes.Buffer
	PrintPlan(&buf, []ResourceChange{rc}, nil)
	out := buf.String()
	assert.Contains(t, out, "+ create")
	assert.Contains(t, out, "# widget.a will be created")
	assert.Contains(t, out, `resource "widget" "a"`)
	assert.Contains(t, out, "Plan: 1 to add, 0 to change, 0 to destroy.")
}

func TestPrintPlan_ReplaceShowsLegendLine(t *testing.T) {
	rc := ResourceChange{
		Address:         "widget.a",
		ResourceType:    "widget",
		Action:          plans.DeleteThenCreate,
		Prior:           cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("old"), "computed_id": cty.StringVal("computed-old")}),
		Planned:         cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("new"), "computed_id": cty.UnknownVal(cty.String)}),
		RequiresReplace: []cty.Path{cty.GetAttrPath("name")},
	}
	var buf bytes.Buffer
	PrintPlan(&buf, []ResourceChange{rc}, nil)
	out := buf.String()
	assert.Contains(t, out, "destroy and then create replacement")
	assert.Contains(t, out, "must be replaced")
	assert.Contains(t, out, "Plan: 1 to add, 0 to change, 1 to destroy.")
}

func TestPrintPlan_OutputsSectionListsChangedOutputs(t *testing.T) {
	rc := ResourceChange{Address: "widget.a", ResourceType: "widget", Action: plans.Create, Planned: cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("a"), "computed_id": cty.NullVal(cty.String)})}
	var buf bytes.Buffer
	PrintPlan(&buf, []ResourceChange{rc}, []*plans.OutputChangeSrc{{Addr: "greeting"}})
	assert.Contains(t, buf.String(), "Changes to Outputs:")
	assert.Contains(t, buf.String(), "+ greeting")
}

func TestPrintResourceList_RendersBorderedTable(t *testing.T) {
	var buf bytes.Buffer
	PrintResourceList(&buf, []ListedResource{
		{Address: "widget.a", ResourceType: "widget", Status: state.StatusCreated, ProviderSource: "hashicorp/widget"},
	})
	out := buf.String()
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "widget.a")
	assert.Contains(t, out, "+--")
}

func TestPrintResourceList_EmptyPrintsPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	PrintResourceList(&buf, nil)
	assert.Equal(t, "No resources.\n", buf.String())
}

func TestPrintResourceDetail_MasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	PrintResourceDetail(&buf, ListedResource{
		Address:        "widget.a",
		ResourceType:   "widget",
		Status:         state.StatusCreated,
		ProviderSource: "hashicorp/widget",
		Attributes:     map[string]string{"name": "alpha", "password": "hunter2"},
		SensitiveAttrs: []string{"password"},
	})
	out := buf.String()
	assert.Contains(t, out, "name = alpha")
	assert.Contains(t, out, "password = (sensitive value)")
	assert.NotContains(t, out, "hunter2")
}

func TestReport_PrintSwitchesBetweenSuccessAndError(t *testing.T) {
	var ok bytes.Buffer
	NewReportFromCounts(3, 0, 1).Print(&ok)
	assert.Contains(t, ok.String(), "Success: 3 succeeded, 1 skipped.")

	var bad bytes.Buffer
	NewReportFromCounts(1, 2, 0).Print(&bad)
	assert.Contains(t, bad.String(), "Error: 1 succeeded, 2 failed, 0 skipped.")
}
