package webm_test

import (
	"github.com/olivier-w/webmplay/internal/webm"
	wt "github.com/olivier-w/webmplay/internal/webm/webmtest"
)

var sampleTracks = []wt.Track{
	{Number: 1, Type: webm.TrackAudio, CodecID: "A_VORBIS", SampleRate: 1000, Channels: 1},
	{Number: 2, Type: webm.TrackVideo, CodecID: "V_VP8", Width: 64, Height: 48},
	{Number: 3, Type: webm.TrackSubtitle, CodecID: "S_TEXT/UTF8"},
}

// sampleFile interleaves audio (track 1), video (track 2) and subtitle
// (track 3) blocks over two clusters.
func sampleFile(cues bool) wt.File {
	return wt.File{
		Duration: 200,
		Title:    "Sample",
		Tags:     map[string]string{"artist": "Tester"},
		Tracks:   sampleTracks,
		Cues:     cues,
		CueTrack: 2,
		Clusters: []wt.Cluster{
			{Timecode: 0, Blocks: [][]byte{
				wt.SimpleBlock(1, 0, true, []byte{1}),
				wt.SimpleBlock(2, 0, true, []byte{0xA}),
				wt.SimpleBlock(3, 5, true, []byte{0xEE}),
				wt.SimpleBlock(1, 10, true, []byte{2}),
				wt.SimpleBlock(2, 33, false, []byte{0xB}),
			}},
			{Timecode: 100, Blocks: [][]byte{
				wt.SimpleBlock(1, 0, true, []byte{3}),
				wt.BlockGroup(2, 0, false, 33, []byte{0xC}),
				wt.BlockGroup(2, 33, true, 0, []byte{0xD}),
				wt.SimpleBlock(1, 10, true, []byte{4}),
			}},
		},
	}
}

func openSample(data []byte) (*webm.Parser, error) {
	p, err := webm.Open(wt.NewSource(data))
	if err != nil {
		return nil, err
	}
	return p, p.ReadHeaders()
}
