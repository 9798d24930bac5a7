package handler

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IshanMadusanka13/Salon-Capta/internal/core/appointment"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/attendance"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/employee"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/inventory"
	"github.com/IshanMadusanka13/Salon-Capta/internal/core/payroll"
)

// ServiceName は gRPC サービスの完全修飾名です。
const ServiceName = "salon.v1.SalonService"

// SalonServiceServer は salon.v1.SalonService のサーバー側インターフェースです。
// メッセージはすべて google.protobuf.Struct で、フィールド名は snake_case です。
type SalonServiceServer interface {
	ListBookedSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFreeSlots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateAppointmentStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryAttendance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkAttendance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SettlePayroll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSalaries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AdjustStock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEmployees(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEmployee(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(SalonServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SalonServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SalonServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SalonServiceDesc は salon.v1.SalonService の grpc.ServiceDesc です。
var SalonServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SalonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListBookedSlots", SalonServiceServer.ListBookedSlots),
		unary("ListFreeSlots", SalonServiceServer.ListFreeSlots),
		unary("UpdateAppointmentStatus", SalonServiceServer.UpdateAppointmentStatus),
		unary("CancelAppointment", SalonServiceServer.CancelAppointment),
		unary("QueryAttendance", SalonServiceServer.QueryAttendance),
		unary("MarkAttendance", SalonServiceServer.MarkAttendance),
		unary("SettlePayroll", SalonServiceServer.SettlePayroll),
		unary("ListSalaries", SalonServiceServer.ListSalaries),
		unary("CreateTransaction", SalonServiceServer.CreateTransaction),
		unary("UpdateTransaction", SalonServiceServer.UpdateTransaction),
		unary("DeleteTransaction", SalonServiceServer.DeleteTransaction),
		unary("GetTransaction", SalonServiceServer.GetTransaction),
		unary("ListTransactions", SalonServiceServer.ListTransactions),
		unary("AdjustStock", SalonServiceServer.AdjustStock),
		unary("CreateEmployee", SalonServiceServer.CreateEmployee),
		unary("GetEmployee", SalonServiceServer.GetEmployee),
		unary("ListEmployees", SalonServiceServer.ListEmployees),
		unary("UpdateEmployee", SalonServiceServer.UpdateEmployee),
		unary("DeleteEmployee", SalonServiceServer.DeleteEmployee),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salon/v1/salon.proto",
}

// RegisterSalonServiceServer は srv を gRPC サーバーに登録します。
func RegisterSalonServiceServer(s grpc.ServiceRegistrar, srv SalonServiceServer) {
	s.RegisterService(&SalonServiceDesc, srv)
}

// UseCases は SalonGrpcHandler が呼び出すユースケース群です。
type UseCases struct {
	Appointments appointment.UseCase
	Attendance   attendance.UseCase
	Payroll      payroll.UseCase
	Inventory    inventory.UseCase
	Employees    employee.UseCase
}

// SalonGrpcHandler は SalonService の gRPC 実装です。
type SalonGrpcHandler struct {
	appointments appointment.UseCase
	attendance   attendance.UseCase
	payroll      payroll.UseCase
	inventory    inventory.UseCase
	employees    employee.UseCase
	location     *time.Location
}

var _ SalonServiceServer = (*SalonGrpcHandler)(nil)

// NewSalonGrpcHandler は SalonGrpcHandler を生成します。loc は暦日・月の解釈に使うタイムゾーンです。
func NewSalonGrpcHandler(uc UseCases, loc *time.Location) *SalonGrpcHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SalonGrpcHandler{
		appointments: uc.Appointments,
		attendance:   uc.Attendance,
		payroll:      uc.Payroll,
		inventory:    uc.Inventory,
		employees:    uc.Employees,
		location:     loc,
	}
}
