// SPDX-License-Identifier: GPL-3.0-or-later

package m3ua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildASPUP(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x00, 0x03, 0x01, 0x00, 0x00, 0x00, 0x08}, BuildASPUP())
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    Header
		wantErr error
	}{
		{
			name:  "ASPUP_ACK",
			input: []byte{0x01, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00, 0x08},
			want:  Header{Version: 1, Class: ClassASPSM, Type: TypeASPUPAck, Length: 8},
		},
		{
			name:  "ERR with parameters",
			input: []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x0c, 0x00, 0x08, 0x00, 0x00, 0x00, 0x07},
			want:  Header{Version: 1, Class: ClassMGMT, Type: TypeERR, Length: 16},
		},
		{
			name:    "short message",
			input:   []byte{0x01, 0x00, 0x03},
			wantErr: ErrShortMessage,
		},
		{
			name:    "empty message",
			input:   nil,
			wantErr: ErrShortMessage,
		},
		{
			name:    "bad version",
			input:   []byte{0x02, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00, 0x08},
			wantErr: ErrVersion,
		},
		{
			name:    "bad length",
			input:   []byte{0x01, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00, 0x04},
			wantErr: ErrLength,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeaderString(t *testing.T) {
	assert.Equal(t, "ASPSM/ASPUP", Header{Class: ClassASPSM, Type: TypeASPUP}.String())
	assert.Equal(t, "ASPSM/ASPUP_ACK", Header{Class: ClassASPSM, Type: TypeASPUPAck}.String())
	assert.Equal(t, "MGMT/ERR", Header{Class: ClassMGMT, Type: TypeERR}.String())
	assert.Equal(t, "MGMT/NTFY", Header{Class: ClassMGMT, Type: TypeNTFY}.String())
	assert.Equal(t, "ASPTM/TYPE(1)", Header{Class: ClassASPTM, Type: 1}.String())
	assert.Equal(t, "CLASS(42)/TYPE(7)", Header{Class: 42, Type: 7}.String())
}

func TestReplyIsASPUpAck(t *testing.T) {
	assert.True(t, (&Reply{Header: Header{Class: ClassASPSM, Type: TypeASPUPAck}}).IsASPUpAck())
	assert.False(t, (&Reply{Header: Header{Class: ClassASPSM, Type: TypeASPUP}}).IsASPUpAck())
	assert.False(t, (&Reply{Header: Header{Class: ClassMGMT, Type: TypeASPUPAck}}).IsASPUpAck())
}
