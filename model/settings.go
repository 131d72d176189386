package model

// Settings holds the model-level metadata and run parameters that live
// on the root document element rather than on any individual entity:
// authorship, the active time scale, the default block/look-ahead
// window, and the handful of boolean document flags a Linny-R file
// carries (encryption, decimal-comma locale, snap-to-grid, whether
// cost prices and results get reported back to the user).
type Settings struct {
	NextProcessNumber int
	NextProductNumber int
	Encrypt           bool
	DecimalComma      bool
	AlignToGrid       bool
	CostPrices        bool
	ReportResults     bool
	BlockArrows       bool

	Name             string
	Author           string
	Notes            string
	Version          string
	LastSaved        string
	TimeScale        float64
	TimeUnit         string
	DefaultScaleUnit string
	CurrencyUnit     string
	GridPixels       int
	TimeoutPeriod    int
	BlockLength      int
	StartPeriod      int
	EndPeriod        int
	LookAheadPeriod  int
	RoundSequence    string

	BaseCaseSelectors     []string
	SensitivityParameters []string
	SensitivityOutcomes   []string
	SensitivityDelta      float64
	SensitivityRuns       int

	Imports []string
	Exports []string
}

// DefaultSettings returns the settings a freshly created model starts
// with: an hourly time scale, a one-week block and no look-ahead,
// matching the values a new Linny-R model opens with.
func DefaultSettings() Settings {
	return Settings{
		TimeScale:     1,
		TimeUnit:      "hour",
		CurrencyUnit:  "1",
		GridPixels:    20,
		TimeoutPeriod: 30,
		BlockLength:   168,
		RoundSequence: "abcd",
	}
}
