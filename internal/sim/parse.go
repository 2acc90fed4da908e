package sim

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityFarm/internal/amm"
	"liquidityFarm/internal/model"
)

const maxStepLine = 1 << 20

// ReadSteps loads a JSONL scenario. Blank lines and lines starting with '#'
// are skipped.
func ReadSteps(path string) ([]model.Step, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	return DecodeSteps(file)
}

// DecodeSteps parses JSONL steps from r.
func DecodeSteps(r io.Reader) ([]model.Step, error) {
	var steps []model.Step
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStepLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var step model.Step
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&step); err != nil {
			return nil, fmt.Errorf("scenario line %d: %w", line, err)
		}
		if step.Op == "" {
			return nil, fmt.Errorf("scenario line %d: missing op", line)
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return steps, nil
}

// ParseAddress converts a hex address field, naming the field on error.
func ParseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", field, input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(field, input string) (*uint256.Int, error) {
	amount, err := amm.ParseAmount(input)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}
