package util

import (
	"reflect"
	"testing"
)

func TestEnumerateMultiSet(t *testing.T) {
	multiSet := []Elem{StringElem("a"), StringElem("b"), StringElem("b")}
	expected := []Partition{
		[][]Elem{{StringElem("a"), StringElem("b"), StringElem("b")}},
		[][]Elem{{StringElem("a"), StringElem("b")}, {StringElem("b")}},
		[][]Elem{{StringElem("a")}, {StringElem("b"), StringElem("b")}},
		[][]Elem{{StringElem("a")}, {StringElem("b")}, {StringElem("b")}},
	}
	obtained := EnumeratePartitions(multiSet)
	if !reflect.DeepEqual(expected, obtained) {
		t.Errorf("incorrect partitions: %v", obtained)
	}
}

func TestTwoWaySplits(t *testing.T) {
	splits := TwoWaySplits([]int{3, 7, 9})
	// {3}{7,9} {3,7}{9} {3,9}{7}
	if len(splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(splits))
	}
	for _, s := range splits {
		if s[0][0] != 3 {
			t.Errorf("first element should stay in the first group: %v", s)
		}
		if len(s[0])+len(s[1]) != 3 {
			t.Errorf("split lost elements: %v", s)
		}
	}
	if TwoWaySplits([]int{1}) != nil {
		t.Errorf("single element cannot be split")
	}
}

func TestTwoWaySplitsCount(t *testing.T) {
	// Stirling number S(5,2) = 15
	if n := len(TwoWaySplits([]int{0, 1, 2, 3, 4})); n != 15 {
		t.Errorf("expected 15 splits, got %d", n)
	}
}
