//go:build cgo

// Bridges to the network's pinned native transaction-encoding library,
// mirroring internal/shielded's cgo boundary: the wallet core is the host,
// the native library a linked cdylib. Unlike shielded's fixed-size byte
// bridge, an intent's shape is variable (arbitrary input/output counts), so
// this boundary uses the teacher's JSON envelope convention from
// internal/lib/exports.go instead of raw pointer-and-length arguments: the
// caller marshals a request struct to a NUL-terminated JSON C string, the
// native side returns a heap-allocated JSON C string shaped
// {"success":bool,"data":...,"error":"..."}, and the caller must free it.
package encoder

/*
#cgo LDFLAGS: -lmidnight_transaction_codec
#include <stdlib.h>

// encode_intent_ffi takes a NUL-terminated JSON wireIntent payload and
// returns a NUL-terminated JSON envelope {"success":bool,"data":"<hex
// bytes>","error":"..."}. The caller must free the returned pointer with
// free().
extern char *encode_intent_ffi(const char *payload_json);

// signing_messages_ffi takes the same payload shape and returns
// {"success":bool,"data":["<hex>", ...],"error":"..."}, one message per
// input in the payload's given order.
extern char *signing_messages_ffi(const char *payload_json);

// codec_version_ffi returns a NUL-terminated version string owned by the
// native library; the caller must not free it.
extern const char *codec_version_ffi(void);
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"github.com/shielded-utxo/walletcore/internal/assembler"
	"github.com/shielded-utxo/walletcore/internal/corerrors"
)

// NativeEncoder calls the pinned native transaction-encoding library via
// cgo.
type NativeEncoder struct{}

// NewNativeEncoder returns the cgo-backed Encoder. Requires the host
// process to be linked against libmidnight_transaction_codec.
func NewNativeEncoder() *NativeEncoder { return &NativeEncoder{} }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func callFFI(fn func(*C.char) *C.char, payload wireIntent) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	cPayload := C.CString(string(body))
	defer C.free(unsafe.Pointer(cPayload))

	cResp := fn(cPayload)
	if cResp == nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("native call returned no response")}
	}
	defer C.free(unsafe.Pointer(cResp))

	var env envelope
	if err := json.Unmarshal([]byte(C.GoString(cResp)), &env); err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("parsing native response envelope: %w", err)}
	}
	if !env.Success {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("native codec error: %s", env.Error)}
	}
	return env.Data, nil
}

func (e *NativeEncoder) Encode(intent *assembler.Intent) ([]byte, error) {
	return e.encode(intent, false)
}

func (e *NativeEncoder) EncodeWithDust(intent *assembler.Intent) ([]byte, error) {
	return e.encode(intent, true)
}

func (e *NativeEncoder) encode(intent *assembler.Intent, withDust bool) ([]byte, error) {
	payload := toWireIntent(intent)
	if !withDust {
		payload.Dust = nil
	}

	data, err := callFFI(func(p *C.char) *C.char { return C.encode_intent_ffi(p) }, payload)
	if err != nil {
		return nil, err
	}

	var hexBytes string
	if err := json.Unmarshal(data, &hexBytes); err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("parsing encoded bytes: %w", err)}
	}
	return decodeHexData(hexBytes)
}

func (e *NativeEncoder) CanonicalSigningMessages(intent *assembler.Intent) ([][]byte, error) {
	payload := toWireIntent(intent)

	data, err := callFFI(func(p *C.char) *C.char { return C.signing_messages_ffi(p) }, payload)
	if err != nil {
		return nil, err
	}

	var hexMessages []string
	if err := json.Unmarshal(data, &hexMessages); err != nil {
		return nil, &corerrors.CryptoError{Kind: corerrors.CryptoEncoding, Err: fmt.Errorf("parsing signing messages: %w", err)}
	}
	messages := make([][]byte, len(hexMessages))
	for i, h := range hexMessages {
		b, err := decodeHexData(h)
		if err != nil {
			return nil, err
		}
		messages[i] = b
	}
	return messages, nil
}

func (e *NativeEncoder) Version() string {
	return C.GoString(C.codec_version_ffi())
}

var _ assembler.SigningMessages = (*NativeEncoder)(nil)

// Default returns the build's canonical Encoder: the cgo-backed
// NativeEncoder here, ReferenceEncoder in a cgo-free build. Callers that
// only need *an* Encoder and do not care which — the demo CLI, most tests —
// use this instead of picking a concrete type themselves.
func Default() Encoder { return NewNativeEncoder() }
