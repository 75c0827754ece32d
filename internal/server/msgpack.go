package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tinylib/msgp/msgp"
)

// ContentTypeMsgpack is the media type for MessagePack responses.
const ContentTypeMsgpack = "application/x-msgpack"

func wantsMsgpack(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, ContentTypeMsgpack) || strings.Contains(accept, "application/msgpack")
}

// writeMsgpack encodes v as MessagePack. Types implementing msgp.Encodable
// write themselves; anything else is encoded through its JSON shape so both
// formats carry the same field names.
func writeMsgpack(w io.Writer, v any) error {
	mw := msgp.NewWriter(w)
	if enc, ok := v.(msgp.Encodable); ok {
		if err := enc.EncodeMsg(mw); err != nil {
			return err
		}
		return mw.Flush()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	if err := mw.WriteIntf(generic); err != nil {
		return err
	}
	return mw.Flush()
}

// EncodeMsg implements msgp.Encodable. Empty optional fields are omitted.
func (e ErrorBody) EncodeMsg(en *msgp.Writer) error {
	size := uint32(2)
	if e.Status != 0 {
		size++
	}
	if e.MessageID != "" {
		size++
	}
	if err := en.WriteMapHeader(size); err != nil {
		return err
	}
	if err := en.WriteString("kind"); err != nil {
		return err
	}
	if err := en.WriteString(e.Kind); err != nil {
		return err
	}
	if err := en.WriteString("message"); err != nil {
		return err
	}
	if err := en.WriteString(e.Message); err != nil {
		return err
	}
	if e.Status != 0 {
		if err := en.WriteString("status"); err != nil {
			return err
		}
		if err := en.WriteUint16(e.Status); err != nil {
			return err
		}
	}
	if e.MessageID != "" {
		if err := en.WriteString("message_id"); err != nil {
			return err
		}
		if err := en.WriteString(e.MessageID); err != nil {
			return err
		}
	}
	return nil
}
