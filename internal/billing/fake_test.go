package billing

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"
)

type fakeReply struct {
	status int
	body   string
	err    error
}

type fakeCall struct {
	path    string
	params  url.Values
	timeout time.Duration
}

// fakeRequester serves canned replies keyed by path, or path?billDate for the
// monthly detail endpoint, and records every call.
type fakeRequester struct {
	mu      sync.Mutex
	replies map[string]fakeReply
	calls   []fakeCall
}

func newFakeRequester(replies map[string]fakeReply) *fakeRequester {
	return &fakeRequester{replies: replies}
}

func (f *fakeRequester) Get(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) (Response, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	key := u.Path
	if bd := params.Get("billDate"); bd != "" {
		key += "?" + bd
	}

	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{path: key, params: params, timeout: timeout})
	r, ok := f.replies[key]
	f.mu.Unlock()

	if !ok {
		return &bufferedResponse{status: http.StatusNotFound}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return &bufferedResponse{status: status, body: []byte(r.body)}, nil
}

func (f *fakeRequester) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.path
	}
	return out
}

const (
	sampleCycles = `{"msg":"操作成功","code":0,"data":{"months":["2024年11月","2024年09月"],"years":[2024,2023]}}`

	samplePayments = `{"msg":"操作成功","code":0,"data":[
		{"billDate":"2023年05月","date":"2023.06.02","amount":"30.00","szyf":"6.00","wsf":"9.00","sf":"15.00"},
		{"billDate":"2024年09月","date":"2024.10.08","amount":"45.60","szyf":"9.12","wsf":"13.68","sf":"22.80"}
	]}`

	sampleDetailSep = `{"msg":"操作成功","code":0,"data":{
		"total":"9","endValue":"1/234","grandTotal":"130","amount":"44.10",
		"firstStep":{"amount":"22.50","price":"5.00"},
		"taxFee":{"amount":"14.13","price":"1.57"},
		"waterborneFee":{"amount":"7.47","price":"1.36"},
		"stepLeft":{"first":"0","second":"60"}}}`

	sampleDetailNov = `{"msg":"操作成功","code":0,"data":{
		"total":"8","endValue":"1/250","grandTotal":"125","amount":"38.40",
		"firstStep":{"amount":"20.00","price":"5.00"},
		"taxFee":{"amount":"12.56","price":"1.57"},
		"waterborneFee":{"amount":"11.12","price":"1.39"},
		"stepLeft":{"first":"0","second":"52"}}}`

	sampleDetailEmpty = `{"msg":"操作成功","code":0,"data":{
		"total":"0","endValue":"","grandTotal":"0","amount":"0",
		"firstStep":{"amount":"0","price":"0"},
		"taxFee":{"amount":"0","price":"0"},
		"waterborneFee":{"amount":"0","price":"0"},
		"stepLeft":{"first":"0","second":"0"}}}`
)

func sampleReplies() map[string]fakeReply {
	r := make(map[string]fakeReply)
	r[cycleRangePath] = fakeReply{body: sampleCycles}
	r[paymentsPath] = fakeReply{body: samplePayments}
	r[monthlyPath+"?2024-09"] = fakeReply{body: sampleDetailSep}
	r[monthlyPath+"?2024-11"] = fakeReply{body: sampleDetailNov}
	return r
}
