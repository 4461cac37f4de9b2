package webm

// Element IDs, with their VINT marker bits, as they appear on the wire.
const (
	IDEBML               uint32 = 0x1A45DFA3
	IDEBMLVersion        uint32 = 0x4286
	IDEBMLReadVersion    uint32 = 0x42F7
	IDEBMLMaxIDLength    uint32 = 0x42F2
	IDEBMLMaxSizeLength  uint32 = 0x42F3
	IDDocType            uint32 = 0x4282
	IDDocTypeVersion     uint32 = 0x4287
	IDDocTypeReadVersion uint32 = 0x4285

	IDVoid  uint32 = 0xEC
	IDCRC32 uint32 = 0xBF

	IDSegment uint32 = 0x18538067

	IDSeekHead     uint32 = 0x114D9B74
	IDSeek         uint32 = 0x4DBB
	IDSeekID       uint32 = 0x53AB
	IDSeekPosition uint32 = 0x53AC

	IDInfo          uint32 = 0x1549A966
	IDTimecodeScale uint32 = 0x2AD7B1
	IDDuration      uint32 = 0x4489
	IDTitle         uint32 = 0x7BA9
	IDMuxingApp     uint32 = 0x4D80
	IDWritingApp    uint32 = 0x5741

	IDTracks           uint32 = 0x1654AE6B
	IDTrackEntry       uint32 = 0xAE
	IDTrackNumber      uint32 = 0xD7
	IDTrackType        uint32 = 0x83
	IDFlagEnabled      uint32 = 0xB9
	IDCodecID          uint32 = 0x86
	IDCodecPrivate     uint32 = 0x63A2
	IDDefaultDuration  uint32 = 0x23E383
	IDCodecDelay       uint32 = 0x56AA
	IDSeekPreRoll      uint32 = 0x56BB
	IDName             uint32 = 0x536E
	IDLanguage         uint32 = 0x22B59C
	IDContentEncodings uint32 = 0x6D80

	IDVideo         uint32 = 0xE0
	IDPixelWidth    uint32 = 0xB0
	IDPixelHeight   uint32 = 0xBA
	IDDisplayWidth  uint32 = 0x54B0
	IDDisplayHeight uint32 = 0x54BA

	IDAudio             uint32 = 0xE1
	IDSamplingFrequency uint32 = 0xB5
	IDChannels          uint32 = 0x9F
	IDBitDepth          uint32 = 0x6264

	IDCluster        uint32 = 0x1F43B675
	IDTimecode       uint32 = 0xE7
	IDPosition       uint32 = 0xA7
	IDPrevSize       uint32 = 0xAB
	IDSimpleBlock    uint32 = 0xA3
	IDBlockGroup     uint32 = 0xA0
	IDBlock          uint32 = 0xA1
	IDBlockDuration  uint32 = 0x9B
	IDReferenceBlock uint32 = 0xFB

	IDCues               uint32 = 0x1C53BB6B
	IDCuePoint           uint32 = 0xBB
	IDCueTime            uint32 = 0xB3
	IDCueTrackPositions  uint32 = 0xB7
	IDCueTrack           uint32 = 0xF7
	IDCueClusterPosition uint32 = 0xF1

	IDTags      uint32 = 0x1254C367
	IDTag       uint32 = 0x7373
	IDSimpleTag uint32 = 0x67C8
	IDTagName   uint32 = 0x45A3
	IDTagString uint32 = 0x4487

	IDChapters    uint32 = 0x1043A770
	IDAttachments uint32 = 0x1941A469
)

// isTopLevel reports whether id can only appear directly under Segment.
// An unknown-size Cluster ends when one of these shows up.
func isTopLevel(id uint32) bool {
	switch id {
	case IDCluster, IDCues, IDTags, IDInfo, IDTracks, IDSeekHead, IDChapters, IDAttachments, IDSegment, IDEBML:
		return true
	}
	return false
}
