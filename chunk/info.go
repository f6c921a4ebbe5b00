package chunk

var (
	// See http://bwfmetaedit.sourceforge.net/listinfo.html
	markerINAM = ID{'I', 'N', 'A', 'M'}
	markerIART = ID{'I', 'A', 'R', 'T'}
	markerICOP = ID{'I', 'C', 'O', 'P'}
	markerICMT = ID{'I', 'C', 'M', 'T'}
	markerICRD = ID{'I', 'C', 'R', 'D'}
	markerIENG = ID{'I', 'E', 'N', 'G'}
	markerISFT = ID{'I', 'S', 'F', 'T'}
	markerIKEY = ID{'I', 'K', 'E', 'Y'}
	markerIPRD = ID{'I', 'P', 'R', 'D'}
	markerISBJ = ID{'I', 'S', 'B', 'J'}
	markerISRC = ID{'I', 'S', 'R', 'C'}
)

// Info holds the text entries of a LIST/INFO chunk.
type Info struct {
	Name      string
	Artist    string
	Copyright string
	Comments  string
	Created   string
	Engineer  string
	Software  string
	Keywords  string
	Product   string
	Subject   string
	Source    string
}

// ReadInfo decodes the LIST/INFO child of parent. It returns nil when the
// list has no INFO child. Unreadable entries are left empty.
func ReadInfo(parent *List) *Info {
	lst := parent.Sublist(IDInfo)
	if lst == nil {
		return nil
	}

	info := &Info{}

	fields := []struct {
		marker ID
		value  *string
	}{
		{markerINAM, &info.Name},
		{markerIART, &info.Artist},
		{markerICOP, &info.Copyright},
		{markerICMT, &info.Comments},
		{markerICRD, &info.Created},
		{markerIENG, &info.Engineer},
		{markerISFT, &info.Software},
		{markerIKEY, &info.Keywords},
		{markerIPRD, &info.Product},
		{markerISBJ, &info.Subject},
		{markerISRC, &info.Source},
	}

	for _, field := range fields {
		ck := lst.Subchunk(field.marker)
		if ck == nil {
			continue
		}

		data, err := ck.LoadData()
		if err != nil {
			continue
		}

		*field.value = nullTermStr(data)
	}

	return info
}

// ReadInfoName returns the INAM entry of parent's LIST/INFO, or "".
func ReadInfoName(parent *List) string {
	info := ReadInfo(parent)
	if info == nil {
		return ""
	}

	return info.Name
}

// InfoPayload encodes the entries of info as the children of a LIST/INFO.
// Empty entries are omitted.
func InfoPayload(info *Info) []Node {
	if info == nil {
		return nil
	}

	fields := []struct {
		marker ID
		value  string
	}{
		{markerINAM, info.Name},
		{markerIART, info.Artist},
		{markerICOP, info.Copyright},
		{markerICMT, info.Comments},
		{markerICRD, info.Created},
		{markerIENG, info.Engineer},
		{markerISFT, info.Software},
		{markerIKEY, info.Keywords},
		{markerIPRD, info.Product},
		{markerISBJ, info.Subject},
		{markerISRC, info.Source},
	}

	var nodes []Node

	for _, field := range fields {
		if field.value == "" {
			continue
		}

		nodes = append(nodes, Node{ID: field.marker, Data: append([]byte(field.value), 0x00)})
	}

	return nodes
}
