package script

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	opFalse  = 0x00
	opIf     = 0x63
	opEndif  = 0x68
	opReturn = 0x6a

	protoSingle   = "flacstore"
	protoChunk    = "flacstore-chunk"
	protoManifest = "flacstore-manifest"
	protoCover    = "coverart"
	protoLegacy   = "upfile"
)

// metadata is the JSON object carried inside single/manifest
// containers. Field order is not significant; non-empty optional
// fields must be emitted (§4.1).
type metadata struct {
	Filename  string `json:"filename,omitempty"`
	Size      int64  `json:"size"`
	Chunks    int    `json:"chunks,omitempty"`
	Version   string `json:"version,omitempty"`
	Mime      string `json:"mime,omitempty"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Lyrics    string `json:"lyrics,omitempty"`
	CoverTxid string `json:"cover_txid,omitempty"`
}

// Manifest is the decoded form of a manifest container script.
type Manifest struct {
	Filename   string
	Size       int64
	ChunkTxids []string
	Title      string
	Artist     string
	Lyrics     string
	CoverTxid  string
}

func wrapContainer(pushes ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(opFalse)
	buf.WriteByte(opIf)
	for _, p := range pushes {
		WritePush(&buf, p)
	}
	buf.WriteByte(opEndif)
	return buf.Bytes()
}

// readContainerPushes validates the OP_FALSE OP_IF ... OP_ENDIF wrapper
// and returns the list of pushed data items in order.
func readContainerPushes(s []byte) ([][]byte, bool) {
	if len(s) < 3 || s[0] != opFalse || s[1] != opIf || s[len(s)-1] != opEndif {
		return nil, false
	}
	body := s[2 : len(s)-1]
	var pushes [][]byte
	off := 0
	for off < len(body) {
		data, n, ok := ReadPush(body, off)
		if !ok {
			return nil, false
		}
		pushes = append(pushes, data)
		off += n
	}
	return pushes, true
}

// EncodeSingle emits the single-container script: protocol, mime,
// metadata JSON (filename, size), then the payload chunks in order.
func EncodeSingle(filename string, size int64, mime string, chunks [][]byte) []byte {
	meta, _ := json.Marshal(metadata{Filename: filename, Size: size, Mime: mime})
	pushes := make([][]byte, 0, 3+len(chunks))
	pushes = append(pushes, []byte(protoSingle), []byte(mime), meta)
	pushes = append(pushes, chunks...)
	return wrapContainer(pushes...)
}

// DecodeSingle decodes a single-container script, returning the
// filename and the concatenated payload bytes.
func DecodeSingle(s []byte) (filename string, data []byte, ok bool) {
	pushes, ok := readContainerPushes(s)
	if !ok || len(pushes) < 3 || string(pushes[0]) != protoSingle {
		return "", nil, false
	}
	var m metadata
	if err := json.Unmarshal(pushes[2], &m); err != nil {
		return "", nil, false
	}
	var buf bytes.Buffer
	for _, chunk := range pushes[3:] {
		buf.Write(chunk)
	}
	return m.Filename, buf.Bytes(), true
}

// EncodeChunk emits a chunk-container script: protocol,
// chunk-index-as-decimal-ASCII, then the chunk bytes.
func EncodeChunk(index int, data []byte) []byte {
	return wrapContainer([]byte(protoChunk), []byte(strconv.Itoa(index)), data)
}

// DecodeChunk decodes a chunk-container script, returning the chunk
// bytes.
func DecodeChunk(s []byte) ([]byte, bool) {
	pushes, ok := readContainerPushes(s)
	if !ok || len(pushes) != 3 || string(pushes[0]) != protoChunk {
		return nil, false
	}
	return pushes[2], true
}

// DecodeChunkIndex decodes a chunk-container script and also returns
// its declared 0-based chunk index.
func DecodeChunkIndex(s []byte) (index int, data []byte, ok bool) {
	pushes, ok := readContainerPushes(s)
	if !ok || len(pushes) != 3 || string(pushes[0]) != protoChunk {
		return 0, nil, false
	}
	idx, err := strconv.Atoi(string(pushes[1]))
	if err != nil {
		return 0, nil, false
	}
	return idx, pushes[2], true
}

// EncodeManifest emits a manifest-container script: protocol,
// filename, metadata JSON, then the chunk txids in strict payload
// order.
func EncodeManifest(filename string, size int64, mime string, chunkTxids []string, title, artist, lyrics, coverTxid string) []byte {
	meta, _ := json.Marshal(metadata{
		Size:      size,
		Chunks:    len(chunkTxids),
		Version:   "1.0",
		Mime:      mime,
		Title:     title,
		Artist:    artist,
		Lyrics:    lyrics,
		CoverTxid: coverTxid,
	})
	pushes := make([][]byte, 0, 3+len(chunkTxids))
	pushes = append(pushes, []byte(protoManifest), []byte(filename), meta)
	for _, txid := range chunkTxids {
		pushes = append(pushes, []byte(txid))
	}
	return wrapContainer(pushes...)
}

// DecodeManifest decodes a manifest-container script.
func DecodeManifest(s []byte) (*Manifest, bool) {
	pushes, ok := readContainerPushes(s)
	if !ok || len(pushes) < 3 || string(pushes[0]) != protoManifest {
		return nil, false
	}
	filename := string(pushes[1])
	var m metadata
	if err := json.Unmarshal(pushes[2], &m); err != nil {
		return nil, false
	}
	chunkTxids := make([]string, 0, len(pushes)-3)
	for _, p := range pushes[3:] {
		chunkTxids = append(chunkTxids, string(p))
	}
	return &Manifest{
		Filename:   filename,
		Size:       m.Size,
		ChunkTxids: chunkTxids,
		Title:      m.Title,
		Artist:     m.Artist,
		Lyrics:     m.Lyrics,
		CoverTxid:  m.CoverTxid,
	}, true
}

// EncodeCover emits a cover-art container script. Large images are
// split across multiple pushes by the caller before calling this;
// EncodeCover itself emits exactly one push per supplied chunk.
func EncodeCover(imageChunks [][]byte) []byte {
	pushes := make([][]byte, 0, 1+len(imageChunks))
	pushes = append(pushes, []byte(protoCover))
	pushes = append(pushes, imageChunks...)
	return wrapContainer(pushes...)
}

// DecodeCover decodes a cover-art container script, concatenating all
// image pushes in order.
func DecodeCover(s []byte) ([]byte, bool) {
	pushes, ok := readContainerPushes(s)
	if !ok || len(pushes) < 2 || string(pushes[0]) != protoCover {
		return nil, false
	}
	var buf bytes.Buffer
	for _, p := range pushes[1:] {
		buf.Write(p)
	}
	return buf.Bytes(), true
}

// EncodeOpReturn emits the legacy OP_FALSE OP_RETURN script:
// protocol="upfile", mime, filename, payload.
func EncodeOpReturn(mime, filename string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(opFalse)
	buf.WriteByte(opReturn)
	WritePush(&buf, []byte(protoLegacy))
	WritePush(&buf, []byte(mime))
	WritePush(&buf, []byte(filename))
	WritePush(&buf, data)
	return buf.Bytes()
}

// DecodeOpReturn decodes the legacy OP_FALSE OP_RETURN script,
// returning the filename and payload bytes.
func DecodeOpReturn(s []byte) (filename string, data []byte, ok bool) {
	if len(s) < 2 || s[0] != opFalse || s[1] != opReturn {
		return "", nil, false
	}
	var pushes [][]byte
	off := 2
	for off < len(s) {
		p, n, ok := ReadPush(s, off)
		if !ok {
			return "", nil, false
		}
		pushes = append(pushes, p)
		off += n
	}
	if len(pushes) != 4 || string(pushes[0]) != protoLegacy {
		return "", nil, false
	}
	return string(pushes[2]), pushes[3], true
}
