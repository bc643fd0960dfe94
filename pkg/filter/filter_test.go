package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/surveydash/internal/surveytest"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
)

func TestApplyEmptyIsIdentity(t *testing.T) {
	tbl := surveytest.Table(t)

	for _, fs := range []FilterSet{nil, {}, {surveytest.Company: nil}} {
		v, err := Apply(tbl, fs)
		if err != nil {
			t.Fatalf("Apply(%v) error: %v", fs, err)
		}
		if v.Len() != tbl.Len() {
			t.Errorf("Apply(%v).Len() = %d, want %d", fs, v.Len(), tbl.Len())
		}
	}
}

func TestApplySingleValue(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := Apply(tbl, FilterSet{surveytest.Company: {"Talabat"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	want := surveytest.CountWhere(surveytest.Company, "Talabat")
	if v.Len() != want {
		t.Errorf("Apply().Len() = %d, want %d", v.Len(), want)
	}
	for i := 0; i < v.Len(); i++ {
		if got := v.Value(i, 1).Raw; got != "Talabat" {
			t.Errorf("row %d company = %q, want Talabat", v.Index(i), got)
		}
	}
}

func TestApplyOrWithinAndAcross(t *testing.T) {
	tbl := surveytest.Table(t)
	recs := surveytest.Records()

	fs := FilterSet{
		surveytest.Company: {"Talabat", "Rabbit"},
		surveytest.Gender:  {"Female"},
	}
	v, err := Apply(tbl, fs)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	var want []int
	for i, rec := range recs {
		if (rec[1] == "Talabat" || rec[1] == "Rabbit") && rec[3] == "Female" {
			want = append(want, i)
		}
	}
	if !reflect.DeepEqual(v.Indices(), want) {
		t.Errorf("Apply().Indices() = %v, want %v", v.Indices(), want)
	}
}

func TestApplySubsetMonotonicity(t *testing.T) {
	tbl := surveytest.Table(t)

	f1 := FilterSet{surveytest.Company: {"Talabat", "Breadfast"}}
	f2 := FilterSet{surveytest.Company: {"Talabat", "Breadfast"}, surveytest.City: {"Cairo", "Giza"}}

	v1, err := Apply(tbl, f1)
	if err != nil {
		t.Fatalf("Apply(f1) error: %v", err)
	}
	v2, err := Apply(tbl, f2)
	if err != nil {
		t.Fatalf("Apply(f2) error: %v", err)
	}

	if v2.Len() > v1.Len() {
		t.Fatalf("narrower filter produced more rows: %d > %d", v2.Len(), v1.Len())
	}
	in1 := make(map[int]bool)
	for _, idx := range v1.Indices() {
		in1[idx] = true
	}
	for _, idx := range v2.Indices() {
		if !in1[idx] {
			t.Errorf("row %d matched f2 but not f1", idx)
		}
	}

	narrowed, err := Narrow(v1, FilterSet{surveytest.City: {"Cairo", "Giza"}})
	if err != nil {
		t.Fatalf("Narrow() error: %v", err)
	}
	if !reflect.DeepEqual(narrowed.Indices(), v2.Indices()) {
		t.Errorf("Narrow() = %v, want %v", narrowed.Indices(), v2.Indices())
	}
}

func TestApplyUnknownQuestion(t *testing.T) {
	tbl := surveytest.Table(t)

	_, err := Apply(tbl, FilterSet{"Favourite colour": {"Blue"}})
	if !errors.Is(err, dataset.ErrUnknownQuestion) {
		t.Fatalf("Apply() error = %v, want ErrUnknownQuestion", err)
	}
	var qe *dataset.QuestionError
	if !errors.As(err, &qe) || qe.Question != "Favourite colour" {
		t.Errorf("Apply() error = %v, want question name in error", err)
	}
}

func TestApplyNumericEquality(t *testing.T) {
	tbl := surveytest.Table(t)

	a, err := Apply(tbl, FilterSet{surveytest.Age: {"30"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	b, err := Apply(tbl, FilterSet{surveytest.Age: {"30.0"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if a.Len() == 0 || a.Len() != b.Len() {
		t.Errorf("numeric match: 30 -> %d rows, 30.0 -> %d rows", a.Len(), b.Len())
	}
}

func TestApplyUnanswered(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := Apply(tbl, FilterSet{surveytest.FixedPay: {schema.Unanswered}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if v.Len() != 7 {
		t.Errorf("unanswered pay = %d rows, want 7", v.Len())
	}
	for i := 0; i < v.Len(); i++ {
		if !v.Value(i, 7).IsBlank() {
			t.Errorf("row %d is not blank", v.Index(i))
		}
	}
}

func TestApplyDoesNotMutateTable(t *testing.T) {
	tbl := surveytest.Table(t)
	before := tbl.Fingerprint()

	if _, err := Apply(tbl, FilterSet{surveytest.Company: {"Rabbit"}}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if tbl.Len() != surveytest.Rows || tbl.Fingerprint() != before {
		t.Error("Apply() changed the table")
	}
}

func TestApplyNoMatch(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := Apply(tbl, FilterSet{surveytest.Company: {"talabat"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !v.Empty() {
		t.Errorf("case-sensitive match returned %d rows", v.Len())
	}
}

func TestValidate(t *testing.T) {
	tbl := surveytest.Table(t)

	if err := (FilterSet{" Company ": nil, surveytest.City: {"Cairo"}}).Validate(tbl); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	fs := FilterSet{"Nope": {}}
	if err := fs.Validate(tbl); !errors.Is(err, dataset.ErrUnknownQuestion) {
		t.Errorf("Validate() error = %v, want ErrUnknownQuestion", err)
	}
	if _, err := Apply(tbl, fs); !errors.Is(err, dataset.ErrUnknownQuestion) {
		t.Errorf("Apply() error = %v, want ErrUnknownQuestion", err)
	}
}

func TestNormalize(t *testing.T) {
	fs := FilterSet{
		" Company ": {"Talabat", " Talabat ", "Rabbit"},
		"City":      {},
	}
	got := fs.Normalize()
	want := FilterSet{"Company": {"Talabat", "Rabbit"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
	if fs.Active() != 1 {
		t.Errorf("Active() = %d, want 1", fs.Active())
	}
}

func TestOptions(t *testing.T) {
	tbl := surveytest.Table(t)

	opts, err := Options(dataset.All(tbl), surveytest.Company)
	if err != nil {
		t.Fatalf("Options() error: %v", err)
	}
	want := []Option{
		{Value: "Talabat", Count: 14},
		{Value: "Breadfast", Count: 14},
		{Value: "Rabbit", Count: 14},
		{Value: "Instashop", Count: 14},
	}
	if !reflect.DeepEqual(opts, want) {
		t.Errorf("Options() = %v, want %v", opts, want)
	}

	pay, err := Options(dataset.All(tbl), surveytest.FixedPay)
	if err != nil {
		t.Fatalf("Options() error: %v", err)
	}
	if pay[0].Value != schema.Unanswered || pay[0].Count != 7 {
		t.Errorf("Options()[0] = %+v, want (unanswered) x7", pay[0])
	}

	if _, err := Options(dataset.All(tbl), "nope"); !errors.Is(err, dataset.ErrUnknownQuestion) {
		t.Errorf("Options() error = %v, want ErrUnknownQuestion", err)
	}
}
