// bench loads random int keys into fresh indexes of several page sizes and records how
// the trees grow. Writes <out>/growth.csv plus pages.png and height.png.
// Run: go run ./cmd/bench -n 50000 -pagesizes 256,1024,4096
package main

import (
	storageengine "KeyTreeDB/storage_engine"
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/types"
	"encoding/csv"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type sample struct {
	keys    int
	stats   bplus.TreeStats
	elapsed time.Duration
}

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

func main() {
	n := flag.Int("n", 50000, "keys per run")
	every := flag.Int("every", 1000, "sample interval in keys")
	sizes := flag.String("pagesizes", "256,1024,4096", "comma separated page sizes")
	pool := flag.Int("pool", 256, "buffer pool capacity in pages")
	out := flag.String("out", "bench_out", "output directory")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*out, 0755); err != nil {
		log.Fatal(err)
	}

	runs := make(map[int][]sample)
	var order []int
	for _, field := range strings.Split(*sizes, ",") {
		size, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			log.Fatalf("bad page size %q", field)
		}
		samples, err := run(size, *n, *every, *pool, *seed)
		if err != nil {
			log.Fatalf("page size %d: %v", size, err)
		}
		runs[size] = samples
		order = append(order, size)
		last := samples[len(samples)-1]
		fmt.Printf("page size %5d: %s in %s (%s keys/s)\n", size, last.stats, last.elapsed.Round(time.Millisecond),
			humanize.Comma(int64(float64(last.keys)/last.elapsed.Seconds())))
	}

	if err := writeCSV(filepath.Join(*out, "growth.csv"), order, runs); err != nil {
		log.Fatal(err)
	}
	pages := func(s sample) float64 { return float64(s.stats.InternalPages + s.stats.LeafPages) }
	height := func(s sample) float64 { return float64(s.stats.Height) }
	if err := writePlot(filepath.Join(*out, "pages.png"), "Index pages", "pages", order, runs, pages); err != nil {
		log.Fatal(err)
	}
	if err := writePlot(filepath.Join(*out, "height.png"), "Tree height", "height", order, runs, height); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Results written to", *out)
}

func run(pageSize, n, every, pool int, seed int64) ([]sample, error) {
	dir, err := os.MkdirTemp("", "keytree-bench-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	se, err := storageengine.Open(dir, storageengine.WithPageSize(pageSize), storageengine.WithBufferPoolSize(pool))
	if err != nil {
		return nil, err
	}
	defer se.Close()

	if err := se.CreateIndex("bench", bplus.IntKeyDesc()); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	var samples []sample
	start := time.Now()
	for i, k := range rng.Perm(n) {
		oid := types.ObjectID{FileID: 1, PageNo: uint32(k / 64), SlotNo: uint16(k % 64), Unique: uint32(k)}
		if err := se.Insert("bench", bplus.IntKey(int32(k)), oid); err != nil {
			return nil, err
		}
		if (i+1)%every == 0 || i+1 == n {
			elapsed := time.Since(start)
			stats, err := se.Stats("bench")
			if err != nil {
				return nil, err
			}
			samples = append(samples, sample{keys: i + 1, stats: stats, elapsed: elapsed})
		}
	}
	return samples, nil
}

func writeCSV(path string, order []int, runs map[int][]sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"PageSize", "Keys", "Height", "InternalPages", "LeafPages", "Fill", "ElapsedNs"})
	for _, size := range order {
		for _, s := range runs[size] {
			w.Write([]string{
				strconv.Itoa(size),
				strconv.Itoa(s.keys),
				strconv.Itoa(s.stats.Height),
				strconv.Itoa(s.stats.InternalPages),
				strconv.Itoa(s.stats.LeafPages),
				strconv.FormatFloat(s.stats.Fill(), 'f', 4, 64),
				strconv.FormatInt(s.elapsed.Nanoseconds(), 10),
			})
		}
	}
	w.Flush()
	return w.Error()
}

func writePlot(path, title, ylabel string, order []int, runs map[int][]sample, y func(sample) float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "keys inserted"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Legend.Left = true

	for i, size := range order {
		xys := make(plotter.XYs, len(runs[size]))
		for j, s := range runs[size] {
			xys[j].X = float64(s.keys)
			xys[j].Y = y(s)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = palette[i%len(palette)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%d B pages", size), line)
	}
	p.Add(plotter.NewGrid())
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
