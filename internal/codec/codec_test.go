package codec

import (
	"errors"
	"math/rand/v2"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TriangleYJ/spline/internal/geom"
	"github.com/TriangleYJ/spline/internal/scene"
)

func diff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if d := cmp.Diff(want, got, opts...); d != "" {
		t.Error(d)
	}
}

func TestEncodeDefaultScene(t *testing.T) {
	c := scene.Template()
	c.Color = "#A1B2C3"
	got, err := Encode([]scene.Curve{c})
	if err != nil {
		t.Fatal(err)
	}
	want := `[[50,200,100,50,200,50,250,200,"#A1B2C3",null,null]]`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestEncodeEmptyScene(t *testing.T) {
	got, err := Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[]" {
		t.Errorf("got %s, want []", got)
	}
	curves, err := Decode(got)
	if err != nil {
		t.Fatal(err)
	}
	if len(curves) != 0 {
		t.Errorf("decoded %d curves, want 0", len(curves))
	}
}

func TestEncodeConnections(t *testing.T) {
	s := scene.NewStore(scene.WithColorSource(scene.FixedColors("#000001", "#000002")))
	s.AddCurve()
	if err := s.Connect(1, scene.Start, 0, scene.End); err != nil {
		t.Fatal(err)
	}
	got, err := Encode(s.Curves())
	if err != nil {
		t.Fatal(err)
	}
	want := `[[50,200,100,50,200,50,50,200,"#000001",null,1],[50,200,100,50,200,50,250,200,"#000002",0,null]]`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

// randomScene builds a scene with arbitrary integer coordinates and
// symmetric connections between distinct endpoints.
func randomScene(r *rand.Rand, n int) []scene.Curve {
	curves := make([]scene.Curve, n)
	coord := func() geom.Point {
		return geom.Pt(r.IntN(4000)-2000, r.IntN(4000)-2000)
	}
	for i := range curves {
		curves[i] = scene.Curve{
			Start:    coord(),
			Control1: coord(),
			Control2: coord(),
			End:      coord(),
			Color:    scene.RandomColor(),
		}
	}

	type slot struct {
		curve int
		end   scene.Handle
	}
	var free []slot
	for i := range curves {
		free = append(free, slot{i, scene.Start}, slot{i, scene.End})
	}
	r.Shuffle(len(free), func(a, b int) { free[a], free[b] = free[b], free[a] })

	for len(free) >= 2 {
		a, b := free[0], free[1]
		free = free[2:]
		if a.curve == b.curve || r.IntN(3) == 0 {
			continue
		}
		curves[b.curve].SetPoint(b.end, curves[a.curve].Point(a.end))
		curves[a.curve].SetLink(a.end, &scene.Connection{Curve: b.curve, Endpoint: b.end})
		curves[b.curve].SetLink(b.end, &scene.Connection{Curve: a.curve, Endpoint: a.end})
	}
	return curves
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := range 30 {
		want := randomScene(r, n)
		text, err := Encode(want)
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(text)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(want) == 0 {
			if len(got) != 0 {
				t.Fatalf("n=0: decoded %d curves", len(got))
			}
			continue
		}
		diff(t, want, got)

		again, err := Encode(got)
		if err != nil {
			t.Fatal(err)
		}
		if again != text {
			t.Errorf("n=%d: re-encode differs\n%s\n%s", n, text, again)
		}
	}
}

func TestDecodeLoopPairsByPosition(t *testing.T) {
	// Two curves linked start-to-start and end-to-end. The array only
	// carries partner indices, so coordinates decide the pairing.
	text := `[[0,0,1,1,2,2,10,10,"#111111",1,1],[0,0,5,5,6,6,10,10,"#222222",0,0]]`
	got, err := Decode(text)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, &scene.Connection{Curve: 1, Endpoint: scene.Start}, got[0].StartLink)
	diff(t, &scene.Connection{Curve: 1, Endpoint: scene.End}, got[0].EndLink)
	diff(t, &scene.Connection{Curve: 0, Endpoint: scene.Start}, got[1].StartLink)
	diff(t, &scene.Connection{Curve: 0, Endpoint: scene.End}, got[1].EndLink)
}

func TestDecodeKeepsDanglingReferences(t *testing.T) {
	text := `[[0,0,0,0,0,0,0,0,"#111111",7,null],[1,1,1,1,1,1,1,1,"#222222",null,0]]`
	got, err := Decode(text)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, &scene.Connection{Curve: 7, Endpoint: scene.End}, got[0].StartLink)
	diff(t, &scene.Connection{Curve: 0, Endpoint: scene.Start}, got[1].EndLink)

	again, err := Encode(got)
	if err != nil {
		t.Fatal(err)
	}
	if again != text {
		t.Errorf("got %s\nwant %s", again, text)
	}
}

func TestDecodeTruncatesFractions(t *testing.T) {
	got, err := Decode(`[[1.9,-2.5,3,4,5,6,7,8,"#123456",null,null]]`)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, geom.Pt(1, -2), got[0].Start)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		curve int
	}{
		{"not json", `[[1,2`, -1},
		{"null", `null`, -1},
		{"object", `{"a":1}`, -1},
		{"trailing", `[] []`, -1},
		{"short tuple", `[[1,2,3]]`, 0},
		{"string coord", `[[0,0,0,0,0,0,0,0,"#000000",null,null],["x",0,0,0,0,0,0,0,"#000000",null,null]]`, 1},
		{"numeric color", `[[0,0,0,0,0,0,0,0,5,null,null]]`, 0},
		{"bool link", `[[0,0,0,0,0,0,0,0,"#000000",true,null]]`, 0},
		{"huge", `[[1e99,0,0,0,0,0,0,0,"#000000",null,null]]`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.text)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("got %v, want *DecodeError", err)
			}
			if de.Curve != tt.curve {
				t.Errorf("Curve = %d, want %d (%v)", de.Curve, tt.curve, err)
			}
		})
	}
}

func TestParamRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	want := randomScene(r, 5)
	param, err := EncodeParam(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeParam(param)
	if err != nil {
		t.Fatal(err)
	}
	diff(t, want, got)

	if _, err := DecodeParam("%zz"); err == nil {
		t.Error("bad escape decoded without error")
	}
}

func TestShareURLAndFromQuery(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	want := randomScene(r, 3)

	share, err := ShareURL("https://example.com/editor?hide=1", want)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(share)
	if err != nil {
		t.Fatal(err)
	}
	if u.Query().Get("hide") != "1" {
		t.Errorf("lost existing query parameter: %s", share)
	}

	got, ok, err := FromQuery(u.Query())
	if err != nil || !ok {
		t.Fatalf("FromQuery: ok=%t err=%v", ok, err)
	}
	diff(t, want, got)

	if _, ok, err := FromQuery(url.Values{}); ok || err != nil {
		t.Errorf("missing param: ok=%t err=%v", ok, err)
	}
	if _, ok, err := FromQuery(url.Values{Param: {"[[oops"}}); !ok || err == nil {
		t.Errorf("malformed param: ok=%t err=%v", ok, err)
	}
}
