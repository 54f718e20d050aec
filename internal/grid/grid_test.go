package grid

import "testing"

func csc(code string) Cell {
	return Cell{Courses: []CourseAssignment{{CourseCode: code, DisplayName: code + " name"}}}
}

func TestGridGetSet(t *testing.T) {
	g := New()

	t.Run("absent coordinate reads empty", func(t *testing.T) {
		if !g.Get(Monday, "09:40").IsEmpty() {
			t.Fatal("expected empty cell at untouched coordinate")
		}
	})

	t.Run("set returns a copy", func(t *testing.T) {
		g2 := g.Set(Sunday, "08:00", csc("CSC111"))
		if !g.Get(Sunday, "08:00").IsEmpty() {
			t.Fatal("Set mutated the receiver")
		}
		got, ok := g2.Get(Sunday, "08:00").Single()
		if !ok || got.CourseCode != "CSC111" {
			t.Fatalf("got %+v, want CSC111", got)
		}
	})

	t.Run("setting empty clears the slot", func(t *testing.T) {
		g2 := g.Set(Sunday, "08:00", csc("CSC111")).Set(Sunday, "08:00", Cell{})
		if !g2.Equal(g) {
			t.Fatal("clearing a cell should restore structural equality")
		}
	})
}

func TestCellEqualNormalizesConflictOrder(t *testing.T) {
	a := Cell{Courses: []CourseAssignment{
		{CourseCode: "MAT101", DisplayName: "Math"},
		{CourseCode: "CSC111", DisplayName: "Intro CS"},
	}}
	b := Cell{Courses: []CourseAssignment{
		{CourseCode: "CSC111", DisplayName: "Intro CS"},
		{CourseCode: "MAT101", DisplayName: "Math"},
	}}
	if !a.Equal(b) {
		t.Fatal("conflict cells with the same courses must compare equal")
	}
	if !a.IsConflict() {
		t.Fatal("two competing courses should read as a conflict")
	}
}

func TestGridEqualTreatsMissingDayAsEmpty(t *testing.T) {
	full := New()
	sparse := Grid{}
	if !full.Equal(sparse) {
		t.Fatal("a grid with no defined days should equal an all-empty grid")
	}
	if full.HasDay(Tuesday) == sparse.HasDay(Tuesday) {
		t.Fatal("HasDay must still distinguish defined from dropped days")
	}
}

func TestCourseCounts(t *testing.T) {
	g := New().
		Set(Sunday, "08:00", csc("CSC111")).
		Set(Monday, "08:00", csc("CSC111")).
		Set(Monday, "08:50", Cell{Courses: []CourseAssignment{
			{CourseCode: "CSC111", DisplayName: "Intro CS"},
			{CourseCode: "MAT101", DisplayName: "Math"},
		}})

	counts := g.CourseCounts()
	if counts["CSC111"] != 3 {
		t.Fatalf("CSC111 count = %d, want 3 (conflict cells count every course)", counts["CSC111"])
	}
	if counts["MAT101"] != 1 {
		t.Fatalf("MAT101 count = %d, want 1", counts["MAT101"])
	}
}

func TestGridValueScanRoundTrip(t *testing.T) {
	g := New().
		Set(Sunday, "08:00", csc("CSC111")).
		Set(Thursday, "13:50", Cell{Courses: []CourseAssignment{
			{CourseCode: "PHY201", DisplayName: "Physics", Location: "Lab 2"},
		}})

	v, err := g.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back Grid
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !back.Equal(g) {
		t.Fatal("grid changed across Value/Scan round trip")
	}
}
