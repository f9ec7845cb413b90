package tableau

import "encoding/xml"

// tsRequest is the envelope of every request body.
type tsRequest struct {
	XMLName     xml.Name           `xml:"tsRequest"`
	Credentials *credentialsReq    `xml:"credentials,omitempty"`
	Datasource  *datasourceRequest `xml:"datasource,omitempty"`
}

type credentialsReq struct {
	Name                      string  `xml:"name,attr,omitempty"`
	Password                  string  `xml:"password,attr,omitempty"`
	PersonalAccessTokenName   string  `xml:"personalAccessTokenName,attr,omitempty"`
	PersonalAccessTokenSecret string  `xml:"personalAccessTokenSecret,attr,omitempty"`
	Site                      siteRef `xml:"site"`
}

type siteRef struct {
	ContentURL string `xml:"contentUrl,attr"`
}

type datasourceRequest struct {
	Name    string     `xml:"name,attr"`
	Project projectRef `xml:"project"`
}

type projectRef struct {
	ID string `xml:"id,attr"`
}

// tsResponse is the envelope of every response body. Only the elements this
// client reads are modelled.
type tsResponse struct {
	XMLName     xml.Name         `xml:"tsResponse"`
	Error       *apiErrorBody    `xml:"error"`
	ServerInfo  *serverInfo      `xml:"serverInfo"`
	Credentials *credentialsResp `xml:"credentials"`
	Pagination  *Pagination      `xml:"pagination"`
	Projects    []Project        `xml:"projects>project"`
	FileUpload  *fileUpload      `xml:"fileUpload"`
	Datasource  *Datasource      `xml:"datasource"`
}

type apiErrorBody struct {
	Code    string `xml:"code,attr"`
	Summary string `xml:"summary"`
	Detail  string `xml:"detail"`
}

type serverInfo struct {
	ProductVersion string `xml:"productVersion"`
	RestAPIVersion string `xml:"restApiVersion"`
}

type credentialsResp struct {
	Token string   `xml:"token,attr"`
	Site  siteResp `xml:"site"`
	User  userResp `xml:"user"`
}

type siteResp struct {
	ID         string `xml:"id,attr"`
	ContentURL string `xml:"contentUrl,attr"`
}

type userResp struct {
	ID string `xml:"id,attr"`
}

type fileUpload struct {
	UploadSessionID string `xml:"uploadSessionId,attr"`
	FileSize        string `xml:"fileSize,attr"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	PageNumber     int `xml:"pageNumber,attr"`
	PageSize       int `xml:"pageSize,attr"`
	TotalAvailable int `xml:"totalAvailable,attr"`
}

// Project is a Tableau project.
type Project struct {
	ID          string `xml:"id,attr"`
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr"`
	ParentID    string `xml:"parentProjectId,attr"`
}

// Datasource is a published datasource.
type Datasource struct {
	ID         string     `xml:"id,attr"`
	Name       string     `xml:"name,attr"`
	ContentURL string     `xml:"contentUrl,attr"`
	Type       string     `xml:"type,attr"`
	CreatedAt  string     `xml:"createdAt,attr"`
	UpdatedAt  string     `xml:"updatedAt,attr"`
	Project    projectRef `xml:"project"`
}
