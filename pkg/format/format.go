// Package format defines the video formats a capture device can advertise
// and how strongly each one is preferred during negotiation.
package format

// VideoFormat identifies a pixel or codec format delivered by a capture device.
// The numeric values are shared with the native engine and the C boundary.
type VideoFormat int32

const (
	// Any lets the engine choose.
	Any     VideoFormat = 0
	Unknown VideoFormat = 1

	// Raw RGB formats.
	ARGB VideoFormat = 100
	XRGB VideoFormat = 101

	// Planar YUV formats.
	I420 VideoFormat = 200
	NV12 VideoFormat = 201
	YV12 VideoFormat = 202
	Y800 VideoFormat = 203
	P010 VideoFormat = 204

	// Packed YUV formats.
	YVYU VideoFormat = 300
	YUY2 VideoFormat = 301
	UYVY VideoFormat = 302
	HDYC VideoFormat = 303

	// Encoded formats.
	MJPEG VideoFormat = 400
	H264  VideoFormat = 401
	HEVC  VideoFormat = 402
)

// String returns the string representation of the video format.
func (f VideoFormat) String() string {
	switch f {
	case Any:
		return "Any"
	case ARGB:
		return "ARGB"
	case XRGB:
		return "XRGB"
	case I420:
		return "I420"
	case NV12:
		return "NV12"
	case YV12:
		return "YV12"
	case Y800:
		return "Y800"
	case P010:
		return "P010"
	case YVYU:
		return "YVYU"
	case YUY2:
		return "YUY2"
	case UYVY:
		return "UYVY"
	case HDYC:
		return "HDYC"
	case MJPEG:
		return "MJPEG"
	case H264:
		return "H264"
	case HEVC:
		return "HEVC"
	default:
		return "Unknown"
	}
}

// Preference ratings. Lower is better.
const (
	RatingXRGB        = 0
	RatingARGB        = 1
	RatingPackedYUV   = 2
	RatingPlanarYUV   = 5
	RatingMJPEG       = 10
	RatingMonochrome  = 12
	RatingUnsupported = 15
)

// Rating returns how strongly the format is preferred when several device
// modes fit a request equally well.
func Rating(f VideoFormat) int {
	switch f {
	case XRGB:
		return RatingXRGB
	case ARGB:
		return RatingARGB
	case YUY2, UYVY, YVYU:
		return RatingPackedYUV
	case I420, NV12, YV12, P010:
		return RatingPlanarYUV
	case MJPEG:
		return RatingMJPEG
	case Y800:
		return RatingMonochrome
	default:
		return RatingUnsupported
	}
}

// BeyondMJPEG reports whether f ranks past MJPEG. Devices that settle on such
// a format are retried with MJPEG forced.
func BeyondMJPEG(f VideoFormat) bool {
	return Rating(f) > RatingMJPEG
}

// Unsupported reports whether f is excluded from free-form negotiation.
func Unsupported(f VideoFormat) bool {
	return Rating(f) >= RatingUnsupported
}
