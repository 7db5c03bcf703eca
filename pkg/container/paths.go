package container

import (
	"strconv"
	"strings"
)

// Block paths of the image-stack section of an ITA file.
const (
	scansRoot = "filterdata/TofCorrection/ImageStack/Reduced Data/ImageStackScans"
	addedRoot = "filterdata/TofCorrection/ImageStack/Reduced Data/ImageStackScansAdded"

	PathXSize     = scansRoot + "/Image.XSize"
	PathYSize     = scansRoot + "/Image.YSize"
	PathNumImages = scansRoot + "/Image.NumberOfImages"
	PathNumScans  = scansRoot + "/Image.NumberOfScans"
	PathShifts    = scansRoot + "/ShiftCoordinates/ImageStack.ShiftCoordinates"

	overviewRoot = "Meta/SI Image[0]"

	PathOverviewWidth  = overviewRoot + "/res_x"
	PathOverviewHeight = overviewRoot + "/res_y"
	PathOverviewData   = overviewRoot + "/intensdata"
	PathFieldOfView    = overviewRoot + "/fieldofview"

	PathPeakList = "MassIntervalList"
)

// Peak record fields, relative to PeakPath(k).
const (
	FieldID     = "id"
	FieldLMass  = "lmass"
	FieldUMass  = "umass"
	FieldCMass  = "cmass"
	FieldAssign = "assign"
	FieldDesc   = "desc"
)

// ImagePath addresses the compressed slice of one channel in one scan.
func ImagePath(channel, scan int) string {
	return scansRoot + "/Image[" + strconv.Itoa(channel) + "]/ImageArray.Long[" + strconv.Itoa(scan) + "]"
}

// AddedImagePath addresses the instrument's pre-summed slice of one channel.
func AddedImagePath(channel int) string {
	return addedRoot + "/Image[" + strconv.Itoa(channel) + "]/ImageArray.Long"
}

// PeakPath addresses the k-th record of the peak table.
func PeakPath(k int) string {
	return PathPeakList + "/mi[" + strconv.Itoa(k) + "]"
}

// Join concatenates path elements with "/" and cleans the result.
func Join(elem ...string) string {
	return CleanPath(strings.Join(elem, "/"))
}

// SplitPath splits a path into its components.
// Leading and trailing slashes are handled, empty components are removed.
//
// Examples:
//   - "/" -> []string{}
//   - "Meta/SI Image[0]" -> []string{"Meta", "SI Image[0]"}
func SplitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanPath normalizes a path: no leading or trailing slash, no empty components.
// Block names contain spaces and brackets, so nothing else is rewritten.
func CleanPath(path string) string {
	return strings.Join(SplitPath(path), "/")
}
