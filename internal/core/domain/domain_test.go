package domain

import (
	"errors"
	"testing"
)

func TestCanTransitionFollowsLifecycle(t *testing.T) {
	cases := []struct {
		from, to InstanceStatus
		fileOnly bool
		want     bool
	}{
		{InstanceDraft, InstanceFilled, false, true},
		{InstanceDraft, InstanceUploaded, false, false},
		{InstanceDraft, InstanceFinalized, false, false},
		{InstanceDraft, InstanceFinalized, true, true},
		{InstanceFilled, InstanceFilled, false, true},
		{InstanceFilled, InstanceVerified, false, false},
		{InstanceUploaded, InstanceVerified, false, true},
		{InstanceVerified, InstanceFinalized, false, true},
		{InstanceVerified, InstanceFilled, false, false},
		{InstanceFinalized, InstanceFilled, false, false},
		{InstanceFinalized, InstanceFinalized, true, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to, tc.fileOnly); got != tc.want {
			t.Fatalf("%s -> %s (fileOnly=%v): expected %v, got %v", tc.from, tc.to, tc.fileOnly, tc.want, got)
		}
	}
}

func TestRequiredDocumentsAccumulate(t *testing.T) {
	nso, psa, rsa := TrackNSO.RequiredDocuments(), TrackPSA.RequiredDocuments(), TrackRSA.RequiredDocuments()
	if len(nso) != 5 || len(psa) != 8 || len(rsa) != 10 {
		t.Fatalf("unexpected document counts %d/%d/%d", len(nso), len(psa), len(rsa))
	}
	for i, doc := range nso {
		if psa[i] != doc || rsa[i] != doc {
			t.Fatalf("higher tracks must start with the NSO documents")
		}
	}
	nso[0] = "MUTATED"
	if TrackNSO.RequiredDocuments()[0] == "MUTATED" {
		t.Fatalf("RequiredDocuments must return a copy")
	}
}

func TestRiskTierRank(t *testing.T) {
	if TierNone.Rank() != 0 || TierI.Rank() >= TierIIA.Rank() || TierIIB.Rank() >= TierIII.Rank() {
		t.Fatalf("tiers must be strictly ordered")
	}
	if RiskTier("IV").Valid() || !TierNone.Valid() {
		t.Fatalf("unexpected tier validity")
	}
}

func TestFileRulesAllows(t *testing.T) {
	rules := FileRules{AllowedMIMETypes: []string{"application/pdf", "image/PNG"}}
	if !rules.Allows("application/pdf; charset=binary") || !rules.Allows("image/png") {
		t.Fatalf("expected normalized MIME types to match")
	}
	if rules.Allows("text/plain") {
		t.Fatalf("expected text/plain to be rejected")
	}
	if !(FileRules{}).Allows("anything/else") {
		t.Fatalf("an empty allow-list accepts every type")
	}
}

func TestFieldSchemaValidate(t *testing.T) {
	minV, maxV := 10.0, 1.0
	bad := []FieldSchema{
		{{Key: "", Label: "x", Kind: FieldText}},
		{{Key: "a", Label: "", Kind: FieldText}},
		{{Key: "a", Label: "A", Kind: "BLOB"}},
		{{Key: "a", Label: "A", Kind: FieldText}, {Key: "a", Label: "B", Kind: FieldText}},
		{{Key: "a", Label: "A", Kind: FieldSelect}},
		{{Key: "a", Label: "A", Kind: FieldNumber, Rule: FieldRule{Min: &minV, Max: &maxV}}},
	}
	for i, schema := range bad {
		if err := schema.Validate(); err == nil {
			t.Fatalf("schema #%d: expected validation error", i)
		}
	}
	good := FieldSchema{
		{Key: "a", Label: "A", Kind: FieldText, Required: true},
		{Key: "b", Label: "B", Kind: FieldSelect, Rule: FieldRule{Options: []string{"x"}}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if keys := good.RequiredKeys(); len(keys) != 1 || keys[0] != "a" {
		t.Fatalf("unexpected required keys %v", keys)
	}
}

func TestErrorKinds(t *testing.T) {
	err := NewError(ErrFileTooLarge, "upload", "file %q too big", "a.pdf")
	if !IsKind(err, ErrFileTooLarge) || !IsKind(err, ErrInvalidFile) {
		t.Fatalf("expected file-too-large to also be an invalid file")
	}
	wrapped := WrapError(ErrIncompleteDocuments, "submit", NewError(ErrValidationTimeout, "await", "late"))
	if !IsKind(wrapped, ErrIncompleteDocuments) || !IsKind(wrapped, ErrValidationTimeout) {
		t.Fatalf("expected both kinds on %v", wrapped)
	}
	if WrapError(ErrNotFound, "op", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected kind match")
	}
}

func TestFilingStatusActive(t *testing.T) {
	inactive := []FilingStatus{FilingDraft, FilingRejected}
	active := []FilingStatus{FilingFiled, FilingTechnicalReview, FilingInformationRequired, FilingApproved}
	for _, s := range inactive {
		if s.Active() {
			t.Fatalf("%s must not be active", s)
		}
	}
	for _, s := range active {
		if !s.Active() {
			t.Fatalf("%s must be active", s)
		}
	}
}

func TestStorageKeysDeduplicatesFileOnlyArtifact(t *testing.T) {
	inst := DocumentInstance{
		Files:    []StoredFile{{StorageKey: "a"}, {StorageKey: "b"}},
		Artifact: &Artifact{StorageKey: "a"},
	}
	keys := inst.StorageKeys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
