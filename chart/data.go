package chart

// Data holds the cost breakdown of one project.
type Data struct {
	Label    string
	Design   float64
	Print    float64
	Material float64
}

// Total returns the sum of the three cost items.
func (d Data) Total() float64 {
	return d.Design + d.Print + d.Material
}

// Options configures rendering parameters.
type Options struct {
	BarHeight  int       // height of each bar (px)
	BarPadding int       // padding between bars (px)
	BarWidth   int       // width of the longest bar (px)
	LabelWidth int       // width reserved for project names (px)
	Colors     [3]string // CSS colors for design, print and material segments
	FontSize   int       // font size for labels (px)
	FontFamily string    // font family for labels
	Title      string    // optional chart title
}

// DefaultOptions returns the options used when nil is passed.
func DefaultOptions() *Options {
	return &Options{
		BarHeight:  18,
		BarPadding: 6,
		BarWidth:   320,
		LabelWidth: 120,
		Colors:     [3]string{"#4e79a7", "#f28e2b", "#59a14f"},
		FontSize:   11,
		FontFamily: "sans-serif",
	}
}
