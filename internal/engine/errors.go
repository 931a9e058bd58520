// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import "errors"

// Error kinds the client distinguishes, each used verbatim as a key in the
// error histogram (beat.Stats.Errors). Order here is purely declarative and
// carries no severity ranking.
var (
	ErrInvalidURL         = errors.New("InvalidUrl")
	ErrConnectFailed      = errors.New("ConnectFailed")
	ErrHandshakeFailed    = errors.New("HandshakeFailed")
	ErrSendFailed         = errors.New("SendFailed")
	ErrTimeout            = errors.New("Timeout")
	ErrBuildRequestFailed = errors.New("BuildRequestFailed")
)

func isKind(err, kind error) bool {
	return errors.Is(err, kind)
}
