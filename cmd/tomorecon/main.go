// Command tomorecon runs a reconstruction or preprocess job against a
// raw binary projection stack, driven by a YAML config file. It
// mirrors the flag parsing, banner, and metrics-printing shape of the
// teacher's cmd/mrislicesto3d/main.go, adapted from an STL-volume
// pipeline to a CT slice pipeline.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"tomorecon/internal/models"
	"tomorecon/pkg/config"
	"tomorecon/pkg/logsink"
	"tomorecon/pkg/metrics"
	"tomorecon/pkg/preprocess"
	"tomorecon/pkg/recon"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default values if omitted)")
	mode := flag.String("mode", "recon", "\"recon\" or \"preprocess\"")
	inputPath := flag.String("input", "", "raw binary input file")
	outputPath := flag.String("output", "output.raw", "raw binary output file")
	anglesPath := flag.String("angles", "", "raw binary float64 angle array (degrees); required when geom=angleArray")
	referencePath := flag.String("reference", "", "raw binary float32 reference volume, for quality metrics")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	log_, err := logsink.Open(cfg.Debug.FileName, cfg.Debug.Level)
	if err != nil {
		log.Fatalf("failed to open debug sink: %v", err)
	}
	defer log_.Close()

	fmt.Println("================================")
	fmt.Println("DIRECT-FOURIER CT RECONSTRUCTION AND PREPROCESSING")
	fmt.Println("================================")

	startTime := time.Now()
	switch *mode {
	case "recon":
		runRecon(cfg, *inputPath, *outputPath, *anglesPath, *referencePath, log_)
	case "preprocess":
		runPreprocess(cfg, *inputPath, *outputPath, log_)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
	fmt.Printf("\nCompleted in %.2f seconds\n", time.Since(startTime).Seconds())
}

func runRecon(cfg *config.Config, inputPath, outputPath, anglesPath, referencePath string, logSink *logsink.Sink) {
	rc := cfg.Reconstruction
	params := models.ReconParams{
		NumPixels:           rc.NumPixels,
		NumProjections:      rc.NumProjections,
		NumSlices:           rc.NumSlices,
		PaddedSinogramWidth: rc.PaddedSinogramWidth,
		CenterOffset:        rc.CenterOffset,
		CenterSlope:         rc.CenterSlope,
		AirPixels:           rc.AirPixels,
		RingWidth:           rc.RingWidth,
		Fluorescence:        rc.Fluorescence,
		NumThreads:          rc.NumThreads,
		Geom:                geomFromString(rc.Geom),
		PswfParam:           rc.PswfParam,
		Sampl:               rc.Sampl,
		MaxPixSize:          rc.MaxPixSize,
		ROIRelSize:          rc.ROIRelSize,
		X0:                  rc.X0,
		Y0:                  rc.Y0,
		Ltbl:                rc.Ltbl,
		FilterName:          rc.Filter,
		DebugFileName:       cfg.Debug.FileName,
		DebugLevel:          cfg.Debug.Level,
	}

	var angles []float64
	if params.Geom == models.GeomAngleArray {
		if anglesPath == "" {
			log.Fatalf("geom=angleArray requires -angles")
		}
		var err error
		angles, err = readFloat64s(anglesPath, params.NumProjections)
		if err != nil {
			log.Fatalf("failed to read angles: %v", err)
		}
	}

	raw, err := readFloat32s(inputPath, params.NumSlices*params.NumProjections*params.NumPixels)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	rawSlices := make([][]float32, params.NumSlices)
	sliceLen := params.NumProjections * params.NumPixels
	for i := range rawSlices {
		rawSlices[i] = raw[i*sliceLen : (i+1)*sliceLen]
	}

	imageSize, err := recon.ImageSize(params, angles)
	if err != nil {
		log.Fatalf("failed to size reconstruction job: %v", err)
	}
	images := make([][]float32, params.NumSlices)
	for i := range images {
		images[i] = make([]float32, imageSize*imageSize)
	}
	job, err := recon.NewJob(params, angles, rawSlices, images, logSink)
	if err != nil {
		log.Fatalf("failed to build reconstruction job: %v", err)
	}

	for {
		complete, remaining := job.Poll()
		if complete {
			break
		}
		fmt.Printf("reconstructing: %d slices remaining\n", remaining)
		time.Sleep(500 * time.Millisecond)
	}
	job.Close()

	out := make([]float32, 0, params.NumSlices*job.ImageSize*job.ImageSize)
	for _, img := range images {
		out = append(out, img...)
	}
	if err := writeFloat32s(outputPath, out); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}
	fmt.Printf("reconstructed volume saved to: %s (%d x %d x %d)\n", outputPath, job.ImageSize, job.ImageSize, params.NumSlices)

	if referencePath != "" {
		printMetrics(referencePath, images, job.ImageSize)
	}
}

func runPreprocess(cfg *config.Config, inputPath, outputPath string, logSink *logsink.Sink) {
	rc := cfg.Reconstruction
	pp := cfg.Preprocess
	params := models.PreprocessParams{
		NumPixels:       rc.NumPixels,
		NumSlices:       rc.NumSlices,
		NumProjections:  rc.NumProjections,
		NumThreads:      rc.NumThreads,
		ZingerWidth:     pp.ZingerWidth,
		ZingerThreshold: pp.ZingerThreshold,
		ScaleFactor:     pp.ScaleFactor,
		OutputUint16:    pp.OutputUint16,
		DebugFileName:   cfg.Debug.FileName,
		DebugLevel:      cfg.Debug.Level,
	}

	frameLen := params.NumPixels * params.NumSlices
	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}
	if len(data) != params.NumProjections*frameLen*2 {
		log.Fatalf("input has %d bytes, want %d", len(data), params.NumProjections*frameLen*2)
	}

	raw := make([][]uint16, params.NumProjections)
	out := make([][]byte, params.NumProjections)
	outBytes := 4
	if params.OutputUint16 {
		outBytes = 2
	}
	for i := range raw {
		frame := make([]uint16, frameLen)
		base := data[i*frameLen*2:]
		for j := range frame {
			frame[j] = binary.LittleEndian.Uint16(base[j*2:])
		}
		raw[i] = frame
		out[i] = make([]byte, frameLen*outBytes)
	}

	job, err := preprocess.NewJob(params, raw, nil, nil, out, logSink)
	if err != nil {
		log.Fatalf("failed to build preprocess job: %v", err)
	}
	for {
		complete, remaining := job.Poll()
		if complete {
			break
		}
		fmt.Printf("preprocessing: %d projections remaining\n", remaining)
		time.Sleep(500 * time.Millisecond)
	}
	job.Close()

	f, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer f.Close()
	for _, frame := range out {
		if _, err := f.Write(frame); err != nil {
			log.Fatalf("failed to write output: %v", err)
		}
	}
	fmt.Printf("preprocessed projections saved to: %s\n", outputPath)
}

func printMetrics(referencePath string, images [][]float32, imageSize int) {
	ref, err := readFloat32s(referencePath, len(images)*imageSize*imageSize)
	if err != nil {
		log.Printf("warning: failed to read reference volume: %v", err)
		return
	}
	var sum models.Metrics
	n := 0
	for i, img := range images {
		refSlice := ref[i*imageSize*imageSize : (i+1)*imageSize*imageSize]
		m, err := metrics.Compare(refSlice, img)
		if err != nil {
			continue
		}
		sum.RMSE += m.RMSE
		sum.SSIM += m.SSIM
		sum.MI += m.MI
		sum.EntropyDiff += m.EntropyDiff
		n++
	}
	if n == 0 {
		return
	}
	fmt.Printf("\nQuality metrics (mean over %d slices):\n", n)
	fmt.Printf("Mutual Information (MI): %.3f\n", sum.MI/float64(n))
	fmt.Printf("Entropy Difference: %.3f\n", sum.EntropyDiff/float64(n))
	fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", sum.RMSE/float64(n))
	fmt.Printf("Structural Similarity Index (SSIM): %.3f\n", sum.SSIM/float64(n))
}

func geomFromString(s string) models.Geometry {
	switch s {
	case "halfCircle":
		return models.GeomHalfCircle
	case "fullCircle":
		return models.GeomFullCircle
	default:
		return models.GeomAngleArray
	}
}

func readFloat32s(path string, count int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != count*4 {
		return nil, fmt.Errorf("%s has %d bytes, want %d", path, len(data), count*4)
	}
	out := make([]float32, count)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

func readFloat64s(path string, count int) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != count*8 {
		return nil, fmt.Errorf("%s has %d bytes, want %d", path, len(data), count*8)
	}
	out := make([]float64, count)
	for i := range out {
		bits := binary.LittleEndian.Uint64(data[i*8:])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}

func writeFloat32s(path string, data []float32) error {
	buf := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return os.WriteFile(path, buf, 0644)
}
