package term

// Version is the leading byte of every external term.
const Version = 131

// Wire tags of the external term format. Only a subset is ever
// produced by the encoder; the decoder accepts all of them.
const (
	tagCompressed      = 80
	tagNewFloat        = 70
	tagBitBinary       = 77
	tagNewPid          = 88
	tagNewPort         = 89
	tagNewerReference  = 90
	tagSmallInteger    = 97
	tagInteger         = 98
	tagFloat           = 99
	tagAtomLatin1      = 100
	tagReference       = 101
	tagPort            = 102
	tagPid             = 103
	tagSmallTuple      = 104
	tagLargeTuple      = 105
	tagNil             = 106
	tagString          = 107
	tagList            = 108
	tagBinary          = 109
	tagSmallBig        = 110
	tagLargeBig        = 111
	tagNewFun          = 112
	tagExport          = 113
	tagNewReference    = 114
	tagSmallAtomLatin1 = 115
	tagMap             = 116
	tagAtomUTF8        = 118
	tagSmallAtomUTF8   = 119
	tagV4Port          = 120
)
