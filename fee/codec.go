package fee

import (
	"encoding/binary"
	"fmt"
)

const configSize = 50 // authority(20) + fee_recipient(20) + creation_fee(8) + execution_fee_bps(2)

// SerializeConfig encodes a Config to its fixed binary ledger format.
func SerializeConfig(cfg *Config) []byte {
	buf := make([]byte, configSize)
	copy(buf[0:20], cfg.Authority[:])
	copy(buf[20:40], cfg.FeeRecipient[:])
	binary.BigEndian.PutUint64(buf[40:48], cfg.CreationFee)
	binary.BigEndian.PutUint16(buf[48:50], cfg.ExecutionFeeBps)
	return buf
}

// DeserializeConfig decodes binary data into a Config.
func DeserializeConfig(data []byte) (*Config, error) {
	if len(data) != configSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidFeeConfigData, configSize, len(data))
	}
	cfg := &Config{}
	copy(cfg.Authority[:], data[0:20])
	copy(cfg.FeeRecipient[:], data[20:40])
	cfg.CreationFee = binary.BigEndian.Uint64(data[40:48])
	cfg.ExecutionFeeBps = binary.BigEndian.Uint16(data[48:50])
	return cfg, nil
}
