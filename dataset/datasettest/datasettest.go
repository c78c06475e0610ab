// Package datasettest provides small fixed datasets for tests.
package datasettest

import "github.com/YuminosukeSato/agriyield/dataset"

// TwoRows is the two-record dataset used in the filter and describe examples:
// one Sahel/Mil row for 2020 and one Centre/Maïs row for 2021.
func TwoRows() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		{Region: "Sahel", Cereal: "Mil", Year: 2020, Area: 100, Production: 120, Yield: 1.2,
			Temperature: 31, Precipitation: 350, RainDays: 25, Humidity: 40, WindSpeed: 15, Sunshine: 9},
		{Region: "Centre", Cereal: "Maïs", Year: 2021, Area: 200, Production: 400, Yield: 2.0,
			Temperature: 28, Precipitation: 800, RainDays: 55, Humidity: 60, WindSpeed: 10, Sunshine: 7},
	})
}

// Regional returns twelve records over three regions, two cereals and two
// years. Yield grows with precipitation; humidity is constant so that its
// correlations are undefined.
func Regional() *dataset.Dataset {
	type row struct {
		region, cereal string
		year           int
		area, yield    float64
		precip, temp   float64
	}
	rows := []row{
		{"Centre", "Maïs", 2020, 1000, 2.0, 700, 28},
		{"Centre", "Maïs", 2021, 1100, 2.2, 760, 28.5},
		{"Centre", "Mil", 2020, 800, 1.0, 700, 28},
		{"Centre", "Mil", 2021, 820, 1.1, 760, 28.5},
		{"Sahel", "Maïs", 2020, 300, 1.2, 350, 32},
		{"Sahel", "Maïs", 2021, 320, 1.3, 390, 31.5},
		{"Sahel", "Mil", 2020, 2000, 0.8, 350, 32},
		{"Sahel", "Mil", 2021, 2100, 0.9, 390, 31.5},
		{"Cascades", "Maïs", 2020, 1500, 3.0, 1100, 27},
		{"Cascades", "Maïs", 2021, 1600, 3.2, 1150, 27.5},
		{"Cascades", "Mil", 2020, 400, 1.4, 1100, 27},
		{"Cascades", "Mil", 2021, 420, 1.5, 1150, 27.5},
	}
	records := make([]dataset.Record, len(rows))
	for i, r := range rows {
		records[i] = dataset.Record{
			Region: r.region, Cereal: r.cereal, Year: r.year,
			Area: r.area, Yield: r.yield, Production: r.area * r.yield,
			Temperature: r.temp, Precipitation: r.precip,
			RainDays: r.precip / 15, Humidity: 55,
			WindSpeed: 12 + float64(i%3), Sunshine: 8 - r.precip/1000,
		}
	}
	return dataset.New(records)
}
