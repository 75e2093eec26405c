package script

import "testing"

func TestEncodeDecodeSingleRoundTrip(t *testing.T) {
	chunks := [][]byte{[]byte("hello "), []byte("world")}
	s := EncodeSingle("track.flac", 11, "audio/flac", chunks)
	filename, data, ok := DecodeSingle(s)
	if !ok {
		t.Fatalf("DecodeSingle failed")
	}
	if filename != "track.flac" {
		t.Fatalf("filename=%q", filename)
	}
	if string(data) != "hello world" {
		t.Fatalf("data=%q", data)
	}
}

func TestEncodeDecodeChunkRoundTrip(t *testing.T) {
	s := EncodeChunk(3, []byte("payload"))
	data, ok := DecodeChunk(s)
	if !ok || string(data) != "payload" {
		t.Fatalf("DecodeChunk failed: data=%q ok=%v", data, ok)
	}
	idx, data2, ok := DecodeChunkIndex(s)
	if !ok || idx != 3 || string(data2) != "payload" {
		t.Fatalf("DecodeChunkIndex failed: idx=%d data=%q ok=%v", idx, data2, ok)
	}
}

func TestEncodeDecodeManifestRoundTrip(t *testing.T) {
	txids := []string{"aa", "bb", "cc"}
	s := EncodeManifest("song.flac", 4096, "audio/flac", txids, "Title", "Artist", "la la la", "deadbeef")
	m, ok := DecodeManifest(s)
	if !ok {
		t.Fatalf("DecodeManifest failed")
	}
	if m.Filename != "song.flac" || m.Size != 4096 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	if len(m.ChunkTxids) != 3 || m.ChunkTxids[1] != "bb" {
		t.Fatalf("chunk txids mismatch: %+v", m.ChunkTxids)
	}
	if m.Title != "Title" || m.Artist != "Artist" || m.Lyrics != "la la la" || m.CoverTxid != "deadbeef" {
		t.Fatalf("metadata mismatch: %+v", m)
	}
}

func TestEncodeDecodeCoverRoundTrip(t *testing.T) {
	s := EncodeCover([][]byte{[]byte("PNG"), []byte("DATA")})
	data, ok := DecodeCover(s)
	if !ok || string(data) != "PNGDATA" {
		t.Fatalf("DecodeCover failed: data=%q ok=%v", data, ok)
	}
}

func TestEncodeDecodeOpReturnRoundTrip(t *testing.T) {
	s := EncodeOpReturn("audio/flac", "legacy.flac", []byte("bytes"))
	filename, data, ok := DecodeOpReturn(s)
	if !ok || filename != "legacy.flac" || string(data) != "bytes" {
		t.Fatalf("DecodeOpReturn failed: filename=%q data=%q ok=%v", filename, data, ok)
	}
}

func TestDecodersRejectWrongShape(t *testing.T) {
	single := EncodeSingle("f.flac", 1, "audio/flac", [][]byte{{0x01}})
	if _, ok := DecodeChunk(single); ok {
		t.Fatalf("DecodeChunk should reject a single-container script")
	}
	if _, ok := DecodeCover(single); ok {
		t.Fatalf("DecodeCover should reject a single-container script")
	}
	if _, ok := DecodeManifest(single); ok {
		t.Fatalf("DecodeManifest should reject a single-container script")
	}
}

func TestDecodeRejectsMalformedInputWithoutPanic(t *testing.T) {
	malformed := [][]byte{
		nil,
		{},
		{opFalse},
		{opFalse, opIf},
		{opFalse, opIf, 0x4c, 0x05, 0x01, opEndif},
		{0xff, 0xff, 0xff},
	}
	for _, m := range malformed {
		if _, _, ok := DecodeSingle(m); ok {
			t.Fatalf("DecodeSingle should reject %v", m)
		}
		if _, ok := DecodeChunk(m); ok {
			t.Fatalf("DecodeChunk should reject %v", m)
		}
		if _, ok := DecodeManifest(m); ok {
			t.Fatalf("DecodeManifest should reject %v", m)
		}
		if _, ok := DecodeCover(m); ok {
			t.Fatalf("DecodeCover should reject %v", m)
		}
		if _, _, ok := DecodeOpReturn(m); ok {
			t.Fatalf("DecodeOpReturn should reject %v", m)
		}
	}
}
