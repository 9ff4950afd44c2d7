// Package linksim simulates a single-user, single-antenna OFDM link: LDPC
// coded bits are interleaved, QAM mapped onto a resource grid, passed through
// a statistical multipath fading channel with AWGN, and recovered through LS
// channel estimation, LMMSE equalization, APP demapping, deinterleaving and
// belief-propagation decoding. The simulator measures bit and block error
// rates as a function of Eb/N0.
package linksim

import (
	"fmt"
	"math"
	"sync"

	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"

	"github.com/wiless/linksim/channel"
	"github.com/wiless/linksim/chest"
	"github.com/wiless/linksim/equalize"
	"github.com/wiless/linksim/fec"
	"github.com/wiless/linksim/grid"
	"github.com/wiless/linksim/modem"
)

type GenericStruct map[string]interface{}

// SimConfig is the immutable configuration of one simulated link. All
// components are derived from it at construction; it is never consulted
// again afterwards.
type SimConfig struct {
	NumOFDMSymbols      int     `mapstructure:"num_ofdm_symbols"`
	NumSubcarriers      int     `mapstructure:"num_subcarriers"`
	CyclicPrefix        int     `mapstructure:"cyclic_prefix"`
	PilotSymbolIndices  []int   `mapstructure:"pilot_symbol_indices"`
	NumGuardCarriers    [2]int  `mapstructure:"num_guard_carriers"`
	SubcarrierSpacingHz float64 `mapstructure:"subcarrier_spacing_hz"`
	BitsPerSymbol       int     `mapstructure:"bits_per_symbol"`
	CodeRate            float64 `mapstructure:"code_rate"`
	BatchSize           int     `mapstructure:"batch_size"`
	CarrierGHz          float64 `mapstructure:"carrier_ghz"`
	UESpeedMps          float64 `mapstructure:"ue_speed_mps"`
	DelaySpreadNs       float64 `mapstructure:"delay_spread_ns"`
	NumTaps             int     `mapstructure:"num_taps"`
	MaxDecoderIters     int     `mapstructure:"max_decoder_iters"`
	Seed                int64   `mapstructure:"seed"`
}

func NewSimConfig() SimConfig {
	var result SimConfig
	result.SetDefault()
	return result
}

func (s *SimConfig) SetDefault() {
	s.NumOFDMSymbols = 14
	s.NumSubcarriers = 76
	s.CyclicPrefix = 6
	s.PilotSymbolIndices = []int{2, 11}
	s.NumGuardCarriers = [2]int{0, 0}
	s.SubcarrierSpacingHz = 30e3
	s.BitsPerSymbol = 2
	s.CodeRate = 0.5
	s.BatchSize = 10
	s.CarrierGHz = 2.6
	s.UESpeedMps = 10.0
	s.DelaySpreadNs = 100.0
	s.NumTaps = 4
	s.MaxDecoderIters = 25
	s.Seed = 1729
}

// FromMap overlays configuration values from a generic key/value map.
func (s *SimConfig) FromMap(m GenericStruct) error {
	return mapstructure.Decode(map[string]interface{}(m), s)
}

func (s SimConfig) Validate() error {
	if s.NumOFDMSymbols <= 0 || s.NumSubcarriers <= 0 {
		return fmt.Errorf("linksim: invalid grid %dx%d", s.NumOFDMSymbols, s.NumSubcarriers)
	}
	if s.BitsPerSymbol <= 0 {
		return fmt.Errorf("linksim: bits per symbol %d", s.BitsPerSymbol)
	}
	if s.CodeRate <= 0 || s.CodeRate >= 1 {
		return fmt.Errorf("linksim: code rate %v outside (0,1)", s.CodeRate)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("linksim: batch size %d", s.BatchSize)
	}
	return nil
}

// seed offsets keep the per-component random streams decoupled while the
// whole run stays reproducible from SimConfig.Seed alone.
const (
	seedSource = iota + 1
	seedPilots
	seedInterleaver
	seedCode
	seedChannel
)

// LinkSimulation owns one configured transmitter / channel / receiver chain.
// All components except the fading channel are read-only after New and may
// be shared across concurrent batch elements.
type LinkSimulation struct {
	cfg SimConfig

	rg            *grid.ResourceGrid
	constellation *modem.Constellation
	demapper      *modem.Demapper
	interleaver   *fec.Interleaver
	code          *fec.Code
	decoder       *fec.BPDecoder
	estimator     *chest.Estimator
	equalizer     *equalize.LMMSE
	fading        *channel.Channel
	source        *BinarySource

	numCodeBits int
	numInfoBits int
}

func New(cfg SimConfig) (*LinkSimulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	gs := grid.Setting{
		NumOFDMSymbols:     cfg.NumOFDMSymbols,
		NumSubcarriers:     cfg.NumSubcarriers,
		CyclicPrefix:       cfg.CyclicPrefix,
		PilotSymbolIndices: cfg.PilotSymbolIndices,
		NumGuardCarriers:   cfg.NumGuardCarriers,
		PilotSeed:          cfg.Seed + seedPilots,
	}
	rg, err := grid.New(gs)
	if err != nil {
		return nil, err
	}

	s := &LinkSimulation{cfg: cfg, rg: rg}
	s.numCodeBits = rg.NumDataSymbols() * cfg.BitsPerSymbol
	s.numInfoBits = int(math.Floor(float64(s.numCodeBits) * cfg.CodeRate))
	if s.numInfoBits <= 0 {
		return nil, fmt.Errorf("linksim: configuration yields %d info bits", s.numInfoBits)
	}

	if s.constellation, err = modem.NewConstellation(cfg.BitsPerSymbol); err != nil {
		return nil, err
	}
	s.demapper = modem.NewDemapper(s.constellation)

	if s.interleaver, err = fec.NewInterleaver(s.numCodeBits, cfg.Seed+seedInterleaver); err != nil {
		return nil, err
	}
	if s.code, err = fec.NewCode(s.numInfoBits, s.numCodeBits, cfg.Seed+seedCode); err != nil {
		return nil, err
	}
	s.decoder = fec.NewBPDecoder(s.code, cfg.MaxDecoderIters)

	if s.estimator, err = chest.NewEstimator(rg); err != nil {
		return nil, err
	}
	s.equalizer = equalize.New()

	if s.fading, err = channel.New(rg, s.channelSetting(), cfg.Seed+seedChannel); err != nil {
		return nil, err
	}
	s.source = NewBinarySource(cfg.Seed + seedSource)

	log.Infof("linksim: grid %dx%d, %d data REs, %d pilots, n=%d k=%d lift=%d",
		cfg.NumOFDMSymbols, cfg.NumSubcarriers, rg.NumDataSymbols(), rg.NumPilotSymbols(),
		s.numCodeBits, s.numInfoBits, s.code.LiftSize())
	return s, nil
}

func (s *LinkSimulation) channelSetting() channel.ModelSetting {
	ms := channel.ModelSetting{
		Type:                channel.Exponential,
		CarrierGHz:          s.cfg.CarrierGHz,
		DelaySpreadNs:       s.cfg.DelaySpreadNs,
		UESpeedMps:          s.cfg.UESpeedMps,
		NumTaps:             s.cfg.NumTaps,
		SubcarrierSpacingHz: s.cfg.SubcarrierSpacingHz,
	}
	return ms
}

func (s *LinkSimulation) Config() SimConfig             { return s.cfg }
func (s *LinkSimulation) Grid() *grid.ResourceGrid      { return s.rg }
func (s *LinkSimulation) NumInfoBits() int              { return s.numInfoBits }
func (s *LinkSimulation) NumCodeBits() int              { return s.numCodeBits }
func (s *LinkSimulation) Interleaver() *fec.Interleaver { return s.interleaver }

// noiseVariance is the per-call N0 for the configured link at one operating
// point; deliberately recomputed on every transmission and reception.
func (s *LinkSimulation) noiseVariance(ebnoDb float64) (float64, error) {
	return NoiseVariance(ebnoDb, s.cfg.BitsPerSymbol, s.cfg.CodeRate, s.rg.Overhead())
}

// Transmit encodes, interleaves and maps one batch. It returns the transmit
// grids and the ground-truth info bits for later scoring; the receiver never
// sees the latter.
func (s *LinkSimulation) Transmit() (txGrids []vlib.VectorC, infoBits [][]uint8, err error) {
	txGrids = make([]vlib.VectorC, s.cfg.BatchSize)
	infoBits = make([][]uint8, s.cfg.BatchSize)
	for b := 0; b < s.cfg.BatchSize; b++ {
		info := s.source.Generate(s.numInfoBits)
		cw, err := s.code.Encode(info)
		if err != nil {
			return nil, nil, err
		}
		interleaved, err := s.interleaver.Interleave(cw)
		if err != nil {
			return nil, nil, err
		}
		symbols, err := s.constellation.ModulateBits(interleaved)
		if err != nil {
			return nil, nil, err
		}
		g, err := s.rg.MapData(symbols)
		if err != nil {
			return nil, nil, err
		}
		txGrids[b] = g
		infoBits[b] = info
	}
	return txGrids, infoBits, nil
}

// GoThroughChannel runs a batch of transmit grids through the fading channel
// at the given operating point and returns the received grids together with
// the true channel frequency response (test/validation use only).
func (s *LinkSimulation) GoThroughChannel(txGrids []vlib.VectorC, ebnoDb float64) (rxGrids, hTrue []vlib.VectorC, err error) {
	n0, err := s.noiseVariance(ebnoDb)
	if err != nil {
		return nil, nil, err
	}
	return s.fading.Apply(txGrids, n0)
}

// ReseedChannel restores the fading channel to its initial random stream, so
// successive operating points see identical channel realizations.
func (s *LinkSimulation) ReseedChannel() error {
	fading, err := channel.New(s.rg, s.channelSetting(), s.cfg.Seed+seedChannel)
	if err != nil {
		return err
	}
	s.fading = fading
	return nil
}

// Receive runs the full receiver pipeline on a batch. Batch elements are
// independent and processed in parallel; the shared components are read-only.
func (s *LinkSimulation) Receive(rxGrids []vlib.VectorC, ebnoDb float64) ([][]uint8, []RxStat, error) {
	n0, err := s.noiseVariance(ebnoDb)
	if err != nil {
		return nil, nil, err
	}

	decoded := make([][]uint8, len(rxGrids))
	stats := make([]RxStat, len(rxGrids))
	errs := make([]error, len(rxGrids))

	var wg sync.WaitGroup
	for b := range rxGrids {
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			decoded[b], stats[b], errs[b] = s.receiveOne(rxGrids[b], n0)
		}(b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return decoded, stats, nil
}

func (s *LinkSimulation) receiveOne(rxGrid vlib.VectorC, n0 float64) ([]uint8, RxStat, error) {
	hHat, errVar, err := s.estimator.Estimate(rxGrid, n0)
	if err != nil {
		return nil, RxStat{}, err
	}
	xHat, n0Eff, err := s.equalizer.Equalize(rxGrid, hHat, errVar, n0)
	if err != nil {
		return nil, RxStat{}, err
	}

	dataSyms, err := s.rg.ExtractData(xHat)
	if err != nil {
		return nil, RxStat{}, err
	}
	dataNoise := s.rg.ExtractAt(n0Eff, s.rg.DataIndices())

	llr, err := s.demapper.LLR(dataSyms, dataNoise)
	if err != nil {
		return nil, RxStat{}, err
	}
	deinterleaved, err := s.interleaver.DeinterleaveLLR(llr)
	if err != nil {
		return nil, RxStat{}, err
	}

	bits, iters, converged := s.decoder.Decode(deinterleaved)
	return bits, RxStat{Iterations: iters, Converged: converged}, nil
}

// RunPoint measures one Eb/N0 operating point: a fresh transmission through
// a reseeded channel, received and scored.
func (s *LinkSimulation) RunPoint(ebnoDb float64) (LinkResult, error) {
	var result LinkResult
	result.EbNoDb = ebnoDb

	n0, err := s.noiseVariance(ebnoDb)
	if err != nil {
		return result, err
	}
	result.N0 = n0

	txGrids, infoBits, err := s.Transmit()
	if err != nil {
		return result, err
	}
	if err := s.ReseedChannel(); err != nil {
		return result, err
	}
	rxGrids, _, err := s.GoThroughChannel(txGrids, ebnoDb)
	if err != nil {
		return result, err
	}
	decoded, stats, err := s.Receive(rxGrids, ebnoDb)
	if err != nil {
		return result, err
	}

	result.BitErrors, result.NumBits, result.BlockErrors = MeasureBER(decoded, infoBits)
	result.NumBlocks = len(infoBits)
	result.BER = float64(result.BitErrors) / float64(result.NumBits)
	result.BLER = float64(result.BlockErrors) / float64(result.NumBlocks)
	var iterSum int
	for _, st := range stats {
		iterSum += st.Iterations
		if st.Converged {
			result.Converged++
		}
	}
	result.AvgIterations = float64(iterSum) / float64(len(stats))
	return result, nil
}

// Sweep measures a list of operating points in order.
func (s *LinkSimulation) Sweep(ebnoDbs vlib.VectorF) ([]LinkResult, error) {
	results := make([]LinkResult, 0, len(ebnoDbs))
	for _, ebno := range ebnoDbs {
		r, err := s.RunPoint(ebno)
		if err != nil {
			return nil, err
		}
		log.Infof("linksim: Eb/N0 %5.1f dB  BER %.5f  BLER %.3f  iters %.1f", r.EbNoDb, r.BER, r.BLER, r.AvgIterations)
		results = append(results, r)
	}
	return results, nil
}
