package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// LatLng is a coordinate pair used by the known-locations gazetteer.
type LatLng struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Config holds the tunable parts of the ingestion pipeline. Everything has a
// working default so a missing config file is not an error; a YAML file pointed
// to by PIPELINE_CONFIG overrides per field.
type Config struct {
	// Agencies are lowercase substrings that mark an ad as agent-posted.
	Agencies []string `yaml:"agencies"`

	// KnownLocations maps lowercase area/building names to coordinates,
	// consulted before the geocoding API.
	KnownLocations map[string]LatLng `yaml:"known_locations"`

	// RatePerSecond caps outbound calls to the AI and geocoding services.
	RatePerSecond float64 `yaml:"rate_per_second"`

	// DaysBack is how many days of listings a scrape run covers.
	DaysBack int `yaml:"days_back"`
}

// Default returns the built-in configuration, mirroring what the scraper has
// always shipped with.
func Default() Config {
	return Config{
		Agencies: []string{
			"propnex", "era", "orangetee", "huttons", "dennis wee",
			"savills", "knight frank", "sri", "cbre", "jll", "edmund tie",
		},
		KnownLocations: map[string]LatLng{
			"ubi techpark":  {1.3307, 103.8990},
			"ubi":           {1.3307, 103.8990},
			"sim lim tower": {1.3025, 103.8463},
			"sim lim":       {1.3025, 103.8463},
			"tuas":          {1.3200, 103.6400},
			"tuas south":    {1.2800, 103.6200},
			"jurong":        {1.3329, 103.7436},
			"jurong east":   {1.3329, 103.7436},
			"jurong west":   {1.3400, 103.7000},
			"pioneer":       {1.3151, 103.6975},
			"henderson":     {1.2820, 103.8189},
			"bukit merah":   {1.2819, 103.8239},
			"alexandra":     {1.2897, 103.8067},
			"paya lebar":    {1.3187, 103.8930},
			"macpherson":    {1.3266, 103.8867},
			"tai seng":      {1.3360, 103.8880},
			"kaki bukit":    {1.3355, 103.9055},
			"eunos":         {1.3201, 103.9016},
			"changi":        {1.3600, 103.9800},
			"loyang":        {1.3700, 103.9700},
			"tampines":      {1.3525, 103.9447},
			"woodlands":     {1.4400, 103.7867},
			"yishun":        {1.4294, 103.8354},
			"sembawang":     {1.4491, 103.8185},
			"kranji":        {1.4251, 103.7620},
			"sungei kadut":  {1.4140, 103.7490},
			"mandai":        {1.4167, 103.7700},
			"ang mo kio":    {1.3691, 103.8454},
			"toa payoh":     {1.3343, 103.8563},
			"geylang":       {1.3188, 103.8836},
			"aljunied":      {1.3163, 103.8827},
			"bedok":         {1.3236, 103.9273},
			"serangoon":     {1.3502, 103.8716},
			"hougang":       {1.3612, 103.8863},
			"clementi":      {1.3150, 103.7636},
			"bendemeer":     {1.3147, 103.8635},
		},
		RatePerSecond: 2,
		DaysBack:      1,
	}
}

// Load reads the YAML file at path and overlays it on Default(). An empty path
// returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(file.Agencies) > 0 {
		cfg.Agencies = file.Agencies
	}
	if len(file.KnownLocations) > 0 {
		cfg.KnownLocations = file.KnownLocations
	}
	if file.RatePerSecond > 0 {
		cfg.RatePerSecond = file.RatePerSecond
	}
	if file.DaysBack > 0 {
		cfg.DaysBack = file.DaysBack
	}

	return cfg, nil
}

// LoadFromEnv loads the config file named by PIPELINE_CONFIG, if any.
func LoadFromEnv() (Config, error) {
	return Load(os.Getenv("PIPELINE_CONFIG"))
}
