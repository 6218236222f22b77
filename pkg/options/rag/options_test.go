package rag

import "testing"

func TestNewOptionsDefaultsValid(t *testing.T) {
	if errs := NewOptions().Validate(); len(errs) != 0 {
		t.Fatalf("default options should validate, got %v", errs)
	}
}

func TestValidateRejectsZeroWeightSum(t *testing.T) {
	o := NewOptions()
	o.DenseWeight = 0
	o.LexicalWeight = 0

	errs := o.Validate()
	if len(errs) == 0 {
		t.Fatal("zero weight sum must be rejected at validation time")
	}
}

func TestValidateRejectsNegativeWeight(t *testing.T) {
	o := NewOptions()
	o.LexicalWeight = -0.1

	if errs := o.Validate(); len(errs) == 0 {
		t.Fatal("negative weight must be rejected")
	}
}

func TestValidateRejectsOverlapGreaterThanChunk(t *testing.T) {
	o := NewOptions()
	o.ChunkSize = 100
	o.ChunkOverlap = 100

	if errs := o.Validate(); len(errs) == 0 {
		t.Fatal("overlap >= chunk-size must be rejected")
	}
}
